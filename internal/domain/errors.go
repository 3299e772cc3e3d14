package domain

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Error is a client-safe failure. Errors of the same Kind match each other
// through errors.Is when the target carries no message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Kind, and on Message too when the target has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Validation builds a KindValidation error.
func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}

	// ErrInvalidCredentials is returned for an unknown login name and a wrong password alike.
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "Invalid login name or password"}
	ErrNotLoggedIn        = &Error{Kind: KindAuthorization, Message: "Unauthorized. Please login."}
	ErrDuplicateLogin     = &Error{Kind: KindConflict, Message: "Login name already exists"}
	ErrSSOAccountConflict = &Error{Kind: KindConflict, Message: "Login name belongs to a password account"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrPhotoNotFound      = &Error{Kind: KindNotFound, Message: "Photo not found"}
	ErrBlobNotFound       = &Error{Kind: KindNotFound, Message: "Image not found"}
	ErrInvalidID          = &Error{Kind: KindValidation, Message: "Invalid ID"}
	ErrEmptyComment       = &Error{Kind: KindValidation, Message: "Comment cannot be empty"}
)
