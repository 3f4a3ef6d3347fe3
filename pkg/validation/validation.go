package validation

// Outcome of a validate call. Validation never panics or returns a Go error
// for ordinary bad input; it returns a Result the caller inspects.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// FieldError describes a single invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"` // required, format, range, unique, transition...
}

// Result is the contract every validator returns
type Result struct {
	Result string       `json:"result"`
	Errors []FieldError `json:"errors,omitempty"`
}

func OK() Result {
	return Result{Result: StatusSuccess}
}

func Fail(errs ...FieldError) Result {
	return Result{Result: StatusError, Errors: errs}
}

func (r Result) Valid() bool {
	return r.Result == StatusSuccess
}

// Merge combines two results; the merged result fails if either failed
func (r Result) Merge(other Result) Result {
	if r.Valid() && other.Valid() {
		return OK()
	}
	return Fail(append(append([]FieldError{}, r.Errors...), other.Errors...)...)
}

// Messages flattens field errors into human-readable strings for the response envelope
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return msgs
}

// Builder collects field errors imperatively, matching how service validators
// check one field after another.
type Builder struct {
	errs []FieldError
}

func (b *Builder) Add(field, message, errType string) *Builder {
	b.errs = append(b.errs, FieldError{Field: field, Message: message, Type: errType})
	return b
}

func (b *Builder) Required(field, value string) *Builder {
	if value == "" {
		b.Add(field, field+" is required", "required")
	}
	return b
}

func (b *Builder) Result() Result {
	if len(b.errs) == 0 {
		return OK()
	}
	return Fail(b.errs...)
}
