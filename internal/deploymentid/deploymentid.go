// Package deploymentid resolves and validates the deployment identifier used
// for skew protection.
package deploymentid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/framework"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/logfields"
)

// ReservedPrefix is used by platform-generated identifiers.
const ReservedPrefix = "dpl_"

// MaxLength is the longest identifier accepted.
const MaxLength = 32

// DocsLink is attached to every validation failure.
const DocsLink = "https://vercel.com/docs/skew-protection#custom-skew-protection-deployment-id"

// Rule names the validation rule an identifier violated.
type Rule string

const (
	RulePrefix  Rule = "prefix"
	RuleLength  Rule = "length"
	RuleCharset Rule = "charset"
)

// Source says where a resolved identifier came from.
type Source string

const (
	SourceNone      Source = ""
	SourceExisting  Source = "existing-config"
	SourceBuild     Source = "build-result"
	SourceFramework Source = "framework-manifest"
)

// InvalidError is returned by Validate.
type InvalidError struct {
	Value string
	Rule  Rule
}

func (e *InvalidError) Error() string {
	switch e.Rule {
	case RulePrefix:
		return fmt.Sprintf(`The deploymentId "%s" cannot start with the "%s" prefix. Please choose a different deploymentId in your config.`, e.Value, ReservedPrefix)
	case RuleLength:
		return fmt.Sprintf(`The deploymentId "%s" must be %d characters or less. Please choose a shorter deploymentId in your config.`, e.Value, MaxLength)
	default:
		return fmt.Sprintf(`The deploymentId "%s" contains invalid characters. Only alphanumeric characters (a-z, A-Z, 0-9), hyphens (-), and underscores (_) are allowed.`, e.Value)
	}
}

// Unwrap exposes the classified form so callers can serialize code and link.
func (e *InvalidError) Unwrap() error {
	return foundationerrors.NewError(foundationerrors.CategoryDeployment, e.Error()).
		Fatal().
		WithCode(foundationerrors.CodeInvalidDeploymentID).
		WithLink(DocsLink).
		HideStackTrace().
		WithContext("rule", string(e.Rule)).
		Build()
}

// Validate checks id against the prefix, length and charset rules in that
// order. Length counts characters, not bytes. The empty identifier is valid.
func Validate(id string) error {
	if id == "" {
		return nil
	}
	if strings.HasPrefix(id, ReservedPrefix) {
		return &InvalidError{Value: id, Rule: RulePrefix}
	}
	if utf8.RuneCountInString(id) > MaxLength {
		return &InvalidError{Value: id, Rule: RuleLength}
	}
	for i := 0; i < len(id); i++ {
		if !validChar(id[i]) {
			return &InvalidError{Value: id, Rule: RuleCharset}
		}
	}
	return nil
}

func validChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Resolve picks the identifier: an existing config value wins, then the
// first non-empty value among results in invocation order, then a value
// written into a framework manifest under workPath. Manifest read failures
// count as not found.
func Resolve(ctx context.Context, existing string, results []*builder.Result, workPath string) (string, Source) {
	if existing != "" {
		return existing, SourceExisting
	}
	for _, r := range results {
		if r != nil && r.DeploymentID != "" {
			return r.DeploymentID, SourceBuild
		}
	}
	for _, rel := range framework.DeploymentIDManifests() {
		if id := readManifestID(ctx, filepath.Join(workPath, filepath.FromSlash(rel))); id != "" {
			return id, SourceFramework
		}
	}
	return "", SourceNone
}

func readManifestID(ctx context.Context, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var m struct {
		DeploymentID string `json:"deploymentId"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		slog.DebugContext(ctx, "Ignoring unreadable framework manifest", logfields.Path(path), logfields.Error(err))
		return ""
	}
	return m.DeploymentID
}
