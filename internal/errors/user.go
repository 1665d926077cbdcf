package errors

import "errors"

// ErrorInfo holds the user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the one notification shown for the failure.
	Message string
	// Action is a suggested next step (empty if none).
	Action string
}

type errorEntry struct {
	err  error
	info ErrorInfo
}

// Ordered: the first entry matching the chain wins, and errors.Is needs a
// slice walk rather than a map lookup.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	{ErrInvalidPath, ErrorInfo{
		Message: "The edit targets an invalid location in the specification.",
	}},
	{ErrDuplicateName, ErrorInfo{
		Message: "A model or field with that name already exists.",
		Action:  "Pick a different name.",
	}},
	{ErrInvalidName, ErrorInfo{
		Message: "Names must start with a letter or underscore and contain only letters, digits and underscores.",
	}},
	{ErrModelNotFound, ErrorInfo{
		Message: "That model does not exist in the specification.",
	}},
	{ErrInvalidFieldType, ErrorInfo{
		Message: "That field type is not supported.",
		Action:  "Use one of: string, text, integer, float, boolean, datetime, date, uuid, url, email, json, foreign_key, many_to_many.",
	}},
	{ErrUnknownFile, ErrorInfo{
		Message: "That file is not part of the generated project.",
	}},
	{ErrNoSpecification, ErrorInfo{
		Message: "There is no specification yet.",
		Action:  "Describe your backend or load a specification file first.",
	}},
	{ErrNoArtifact, ErrorInfo{
		Message: "No project has been generated yet.",
		Action:  "Generate code first.",
	}},
	{ErrGenerationInProgress, ErrorInfo{
		Message: "Code generation is already running.",
		Action:  "Wait for the current generation to finish.",
	}},
	{ErrStaleRevision, ErrorInfo{
		Message: "The specification changed since you loaded it.",
		Action:  "Reload the specification and reapply your change.",
	}},
	{ErrSpecFile, ErrorInfo{
		Message: "The specification file could not be read.",
		Action:  "Check that the file is valid YAML or JSON.",
	}},
	{ErrSchema, ErrorInfo{
		Message: "The models cannot be turned into database tables.",
		Action:  "Run lint and fix the reported relations and primary keys.",
	}},
	{ErrTranslation, ErrorInfo{
		Message: "Failed to parse prompt.",
		Action:  "Rephrase the description and try again.",
	}},
	{ErrValidationTransport, ErrorInfo{
		Message: "Failed to validate DSL.",
		Action:  "Retry validation once the service is reachable.",
	}},
	{ErrUnsupportedFramework, ErrorInfo{
		Message: "That framework is not supported.",
		Action:  "Run 'infranest frameworks' to list the available ones.",
	}},
	{ErrGeneration, ErrorInfo{
		Message: "Failed to generate code.",
		Action:  "Check the specification validates, then retry.",
	}},
	{ErrCatalog, ErrorInfo{
		Message: "Could not load the framework catalog.",
	}},
	{ErrDownload, ErrorInfo{
		Message: "Failed to download the generated project.",
	}},
	{ErrUpstreamUnavailable, ErrorInfo{
		Message: "The generation service is not reachable.",
		Action:  "Check upstream.url and that the service is running.",
	}},
	{ErrDatabase, ErrorInfo{
		Message: "The database rejected the request.",
		Action:  "Check database.url and that the server is running.",
	}},
	{ErrConfigInvalid, ErrorInfo{
		Message: "The configuration is invalid.",
		Action:  "Fix the reported setting and restart.",
	}},
}

func lookupErrorInfo(err error) (ErrorInfo, bool) {
	for _, e := range errorInfoEntries {
		if errors.Is(err, e.err) {
			return e.info, true
		}
	}
	return ErrorInfo{}, false
}

// UserMessage returns the human-readable message for err, falling back to
// err.Error() for errors outside the table. It returns "" for nil.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if info, ok := lookupErrorInfo(err); ok {
		return info.Message
	}
	return err.Error()
}

// Actionable returns the message and the suggested action for err.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	if info, ok := lookupErrorInfo(err); ok {
		return info.Message, info.Action
	}
	return err.Error(), ""
}
