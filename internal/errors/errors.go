// Package errors holds the sentinel errors shared by the workspace packages.
//
// Callers check categories with errors.Is. The package imports nothing from
// the rest of the module.
package errors

import "errors"

// Local errors. These signal a bad call and are never retried.
var (
	// ErrInvalidPath indicates an empty mutation path or a path that walks
	// through a value that is not a mapping.
	ErrInvalidPath = errors.New("invalid path")

	// ErrDuplicateName indicates that a model or field with the requested
	// name already exists.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidName indicates an empty or non-identifier model or field name.
	ErrInvalidName = errors.New("invalid name")

	// ErrModelNotFound indicates an edit against a model that is not declared.
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidFieldType indicates a field type outside the supported set.
	ErrInvalidFieldType = errors.New("invalid field type")

	// ErrUnknownFile indicates a file selection that is not part of the
	// current artifact, or a selection with no artifact at all.
	ErrUnknownFile = errors.New("unknown file")

	// ErrNoSpecification indicates an operation that needs a current
	// specification when none is held.
	ErrNoSpecification = errors.New("no specification")

	// ErrNoArtifact indicates an operation that needs a generated artifact.
	ErrNoArtifact = errors.New("no artifact")

	// ErrGenerationInProgress indicates a generation request issued while
	// another one is still outstanding.
	ErrGenerationInProgress = errors.New("generation already in progress")

	// ErrStaleRevision indicates a conditional write against a specification
	// that changed since the caller read it.
	ErrStaleRevision = errors.New("specification revision is stale")

	// ErrSpecFile indicates a specification file that could not be read or parsed.
	ErrSpecFile = errors.New("specification file invalid")

	// ErrSchema indicates models that cannot be rendered as a relational
	// schema, such as a relation to a model without a primary key.
	ErrSchema = errors.New("schema generation failed")
)

// Database errors.
var (
	// ErrDatabase indicates the database could not be reached or rejected DDL.
	ErrDatabase = errors.New("database error")
)

// Boundary errors. These come from the external collaborators.
var (
	// ErrTranslation indicates the translator rejected the prompt or could
	// not be reached.
	ErrTranslation = errors.New("translation failed")

	// ErrValidationTransport indicates the validator could not be reached or
	// returned an unusable response. It is distinct from a specification
	// that validated as invalid.
	ErrValidationTransport = errors.New("validation request failed")

	// ErrUnsupportedFramework indicates a framework id missing from the catalog.
	ErrUnsupportedFramework = errors.New("unsupported framework")

	// ErrGeneration indicates the code generator failed.
	ErrGeneration = errors.New("generation failed")

	// ErrCatalog indicates the framework catalog could not be fetched or loaded.
	ErrCatalog = errors.New("framework catalog unavailable")

	// ErrDownload indicates the artifact archive could not be fetched or stored.
	ErrDownload = errors.New("artifact download failed")

	// ErrUpstreamUnavailable indicates the upstream service failed its health check.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Configuration errors.
var (
	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates a configuration value out of range.
	ErrConfigInvalid = errors.New("invalid configuration")
)
