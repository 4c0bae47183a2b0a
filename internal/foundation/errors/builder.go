package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category  ErrorCategory
	severity  ErrorSeverity
	code      string
	message   string
	link      string
	action    string
	hideStack bool
	cause     error
	context   ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithCode sets the machine readable code.
func (b *ErrorBuilder) WithCode(code string) *ErrorBuilder {
	b.code = code
	return b
}

// WithLink sets the documentation link.
func (b *ErrorBuilder) WithLink(link string) *ErrorBuilder {
	b.link = link
	return b
}

// WithAction sets the suggested action label shown next to the link.
func (b *ErrorBuilder) WithAction(action string) *ErrorBuilder {
	b.action = action
	return b
}

// HideStackTrace marks the error as user-facing; stacks are not printed.
func (b *ErrorBuilder) HideStackTrace() *ErrorBuilder {
	b.hideStack = true
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category:  b.category,
		severity:  b.severity,
		code:      b.code,
		message:   b.message,
		link:      b.link,
		action:    b.action,
		hideStack: b.hideStack,
		cause:     b.cause,
		context:   b.context,
	}
}

// Error codes written to builds.json.
const (
	CodeBuilderFailed       = "BUILDER_FAILED"
	CodeDiscontinuedRuntime = "NODEJS_DISCONTINUED_VERSION"
	CodeInvalidDeploymentID = "INVALID_DEPLOYMENT_ID"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeManifestWrite       = "MANIFEST_WRITE_FAILED"
	CodeUnknownBuilder      = "UNKNOWN_BUILDER"
)

// BuilderExecution wraps an error returned by a builder. A code carried by
// the cause is passed through; otherwise CodeBuilderFailed is used.
func BuilderExecution(use string, cause error) *ClassifiedError {
	if classified, ok := AsClassified(cause); ok {
		return classified
	}
	code := CodeOf(cause)
	if code == "" {
		code = CodeBuilderFailed
	}
	return &ClassifiedError{
		category:  CategoryBuild,
		severity:  SeverityError,
		code:      code,
		message:   cause.Error(),
		hideStack: true,
		context:   ErrorContext{"builder": use},
	}
}

// DiscontinuedRuntime is synthesized for a function output whose runtime
// has been retired even though the builder itself succeeded.
func DiscontinuedRuntime(use, runtime string) *ClassifiedError {
	return NewError(CategoryBuild, `The Runtime "`+use+`" is using "`+runtime+`", which is discontinued. Please upgrade your Runtime to a more recent version or consult the author for more details.`).
		Fatal().
		WithCode(CodeDiscontinuedRuntime).
		WithLink("https://vercel.link/function-runtimes").
		HideStackTrace().
		WithContext("runtime", runtime).
		Build()
}

// UnknownBuilder is recorded when no builder is registered for an identifier.
func UnknownBuilder(use string) *ClassifiedError {
	return NewError(CategoryConfig, `No builder is registered for "`+use+`".`).
		WithCode(CodeUnknownBuilder).
		HideStackTrace().
		Build()
}

// ConfigValidation reports an invalid project configuration.
func ConfigValidation(field, reason string) *ClassifiedError {
	return NewError(CategoryValidation, reason).
		Fatal().
		WithCode(CodeInvalidConfig).
		HideStackTrace().
		WithContext("field", field).
		Build()
}

// ManifestWrite reports a failed flush or manifest write.
func ManifestWrite(path string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryFileSystem, "failed to write "+path).
		Fatal().
		WithCode(CodeManifestWrite).
		WithContext("path", path).
		Build()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
