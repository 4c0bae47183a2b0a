package eventstore

import (
	"git.home.luguber.info/inful/assembler/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.NewError(errors.CategoryRuntime, "could not open run journal").
				WithCode("JOURNAL_OPEN_FAILED").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.NewError(errors.CategoryRuntime, "failed to initialize run journal schema").
					WithCode("JOURNAL_SCHEMA_FAILED").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.NewError(errors.CategoryRuntime, "failed to append event to run journal").
				WithCode("JOURNAL_APPEND_FAILED").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.NewError(errors.CategoryRuntime, "failed to query run journal").
				WithCode("JOURNAL_QUERY_FAILED").Build()

	// ErrMarshalPayloadFailed indicates JSON marshaling of event payload failed.
	ErrMarshalPayloadFailed = errors.NewError(errors.CategoryInternal, "failed to marshal event payload").
				WithCode("JOURNAL_PAYLOAD_FAILED").Build()
)
