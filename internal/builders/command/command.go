// Package command runs an external process as a builder. The process gets
// the build options as JSON on stdin and answers with a JSON build result
// on stdout. A failure is reported either by a non-zero exit or by an
// {"error": {...}} document on stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/config"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/logfields"
)

// waitDelay bounds how long output pipes are drained after the process
// was killed.
const waitDelay = 5 * time.Second

// Builder execs one configured command per build.
type Builder struct {
	id      string
	argv    []string
	env     map[string]string
	timeout time.Duration

	mu     sync.Mutex
	stderr map[string][]byte
}

// New creates the builder registered as id. The command line is split with
// shell quoting rules; Args are appended verbatim.
func New(id string, cfg config.CommandBuilder) (*Builder, error) {
	argv, err := shlex.Split(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("builder %s: parse command: %w", id, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("builder %s: empty command", id)
	}
	argv = append(argv, cfg.Args...)

	var timeout time.Duration
	if cfg.Timeout != "" {
		if timeout, err = time.ParseDuration(cfg.Timeout); err != nil {
			return nil, fmt.Errorf("builder %s: timeout: %w", id, err)
		}
	}
	return &Builder{id: id, argv: argv, env: cfg.Env, timeout: timeout, stderr: make(map[string][]byte)}, nil
}

// errorDocument is what a process prints to report a failed build.
type errorDocument struct {
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Link    string `json:"link"`
		Action  string `json:"action"`
	} `json:"error"`
}

// Build implements builder.Builder.
func (b *Builder) Build(ctx context.Context, opts builder.Options) (*builder.Result, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	input, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal build options: %w", err)
	}

	// #nosec G204 -- the command comes from the project's own config
	cmd := exec.CommandContext(ctx, b.argv[0], b.argv[1:]...)
	cmd.Dir = opts.WorkPath
	cmd.Env = b.environ(opts)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	slog.DebugContext(ctx, "Invoking builder command", logfields.Builder(b.id), slog.String("command", strings.Join(b.argv, " ")))
	runErr := cmd.Run()
	b.keepStderr(opts.Entrypoint, stderr.Bytes())

	if doc := parseErrorDocument(stdout.Bytes()); doc != nil {
		return nil, doc
	}
	if runErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", b.id, runErr, msg)
		}
		return nil, fmt.Errorf("%s: %w", b.id, runErr)
	}

	var result builder.Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("%s: decode build result: %w", b.id, err)
	}
	return &result, nil
}

func parseErrorDocument(stdout []byte) error {
	var doc errorDocument
	if json.Unmarshal(stdout, &doc) != nil || doc.Error == nil {
		return nil
	}
	code := doc.Error.Code
	if code == "" {
		code = foundationerrors.CodeBuilderFailed
	}
	eb := foundationerrors.NewError(foundationerrors.CategoryBuild, doc.Error.Message).
		WithCode(code).
		HideStackTrace()
	if doc.Error.Link != "" {
		eb = eb.WithLink(doc.Error.Link)
	}
	if doc.Error.Action != "" {
		eb = eb.WithAction(doc.Error.Action)
	}
	return eb.Build()
}

// environ layers the process environment, the run's builder env and the
// builder's own env, later entries winning.
func (b *Builder) environ(opts builder.Options) []string {
	env := os.Environ()
	for _, m := range []map[string]string{opts.Env, b.env} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+m[k])
		}
	}
	return env
}

func (b *Builder) keepStderr(entrypoint string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(data) == 0 {
		delete(b.stderr, entrypoint)
		return
	}
	b.stderr[entrypoint] = append([]byte(nil), data...)
}

// Diagnostics returns the stderr of the last invocation for opts.Entrypoint.
func (b *Builder) Diagnostics(_ context.Context, opts builder.Options) (map[string][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.stderr[opts.Entrypoint]
	if !ok {
		return nil, nil
	}
	return map[string][]byte{diagnosticsName(b.id, opts.Entrypoint): data}, nil
}

// diagnosticsName flattens builder id and entrypoint into one file name.
func diagnosticsName(id, entrypoint string) string {
	r := strings.NewReplacer("/", "_", "@", "", "*", "_", " ", "_")
	name := r.Replace(strings.Trim(path.Clean("/"+entrypoint), "/"))
	if name == "" {
		name = "root"
	}
	return path.Join("builders", r.Replace(id), name+".stderr.log")
}
