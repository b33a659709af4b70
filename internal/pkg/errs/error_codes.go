/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system failures both internally
and in responses to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate exceeded the limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Session and Room Business Logic Errors
const (
	// ErrMissingRoomName indicates that a required roomName field was absent.
	ErrMissingRoomName = 2101

	// ErrMissingGuruID indicates that the persona-specific route was called without a guruId.
	ErrMissingGuruID = 2102

	// ErrSessionNotFound indicates that the referenced session does not exist.
	ErrSessionNotFound = 2103

	// ErrSessionNotActive indicates an operation on a session that already ended.
	ErrSessionNotActive = 2104
)

// 3xxx: Credential and Configuration Errors
const (
	// ErrServerConfigMissing indicates that a required server secret is unset.
	// The message names the missing environment variable.
	ErrServerConfigMissing = 3001

	// ErrTokenGeneration indicates a failure while signing an access credential.
	ErrTokenGeneration = 3002
)

// 4xxx: Collaborator (Upstream Service) Errors
const (
	// ErrLedgerUnavailable indicates that the coin ledger service could not be reached.
	ErrLedgerUnavailable = 4001

	// ErrEgressStartFailed indicates that the media provider rejected an egress start.
	ErrEgressStartFailed = 4002

	// ErrProviderUnavailable indicates that the media provider could not be reached.
	ErrProviderUnavailable = 4003

	// ErrRecordingNotFound indicates that the referenced recording row does not exist.
	ErrRecordingNotFound = 4101

	// ErrStorageFailed indicates a recording archive (S3) operation failure.
	ErrStorageFailed = 4102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
