package manifest

import (
	"encoding/json"

	"git.home.luguber.info/inful/assembler/internal/builder"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
)

// BuildsComment is written under the "//" key of builds.json.
const BuildsComment = "This file was generated by the `assembler build` command. It is not part of the Build Output API."

// BuildsManifest is the per-run status record written to builds.json.
type BuildsManifest struct {
	Comment  string        `json:"//"`
	Target   string        `json:"target"`
	Argv     []string      `json:"argv"`
	Builds   []BuildRecord `json:"builds,omitempty"`
	Error    *ErrorShape   `json:"error,omitempty"`
	Features *Features     `json:"features,omitempty"`
}

// BuildRecord describes one build and its outcome.
type BuildRecord struct {
	Require    string         `json:"require"`
	APIVersion int            `json:"apiVersion"`
	Src        string         `json:"src"`
	Use        string         `json:"use"`
	Config     builder.Config `json:"config"`
	Error      *ErrorShape    `json:"error,omitempty"`
}

// Features reports installed instrumentation packages.
type Features struct {
	SpeedInsightsVersion string `json:"speedInsightsVersion,omitempty"`
	WebAnalyticsVersion  string `json:"webAnalyticsVersion,omitempty"`
}

// Empty reports whether no feature was detected.
func (f *Features) Empty() bool {
	return f == nil || (f.SpeedInsightsVersion == "" && f.WebAnalyticsVersion == "")
}

// NewBuildsManifest starts a manifest with no builds.
func NewBuildsManifest(target string, argv []string) *BuildsManifest {
	if argv == nil {
		argv = []string{}
	}
	return &BuildsManifest{
		Comment: BuildsComment,
		Target:  target,
		Argv:    argv,
	}
}

// ErrorShape is the serialized form of an error.
type ErrorShape struct {
	Name           string `json:"name"`
	Message        string `json:"message"`
	Stack          string `json:"stack"`
	HideStackTrace bool   `json:"hideStackTrace"`
	Code           string `json:"code"`
	Link           string `json:"link,omitempty"`
	Action         string `json:"action,omitempty"`
}

// FromError converts err into its serialized shape; nil yields nil.
// Classified errors contribute their code, link, action and stack visibility.
func FromError(err error) *ErrorShape {
	if err == nil {
		return nil
	}
	shape := &ErrorShape{
		Name:    "Error",
		Message: err.Error(),
		Stack:   "Error: " + err.Error(),
	}
	if classified, ok := foundationerrors.AsClassified(err); ok {
		shape.Code = classified.Code()
		shape.Link = classified.Link()
		shape.Action = classified.Action()
		shape.HideStackTrace = classified.HideStackTrace()
	}
	if shape.Code == "" {
		shape.Code = foundationerrors.CodeOf(err)
	}
	return shape
}

// ParseBuildsManifest decodes builds.json content.
func ParseBuildsManifest(data []byte) (*BuildsManifest, error) {
	var m BuildsManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
