package session

import "fmt"

// State is the lifecycle phase of the single query a session carries.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingGeneration State = "awaiting_generation"
	StateGenerationFailed   State = "generation_failed"
	StateAwaitingExecution  State = "awaiting_execution"
	StateExecutionFailed    State = "execution_failed"
	StateCompleted          State = "completed"
)

type ErrorKind string

const (
	ValidationFailure     ErrorKind = "validation_failure"
	AuthenticationFailure ErrorKind = "authentication_failure"
	GenerationFailure     ErrorKind = "generation_failure"
	ExecutionFailure      ErrorKind = "execution_failure"
	StorageFailure        ErrorKind = "storage_failure"
)

// Error is the typed failure every session operation returns instead of a
// bare error string. Kind drives both HTTP status mapping and whether the
// caller may retry.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrorRecord is the serializable form of the error held in session state.
type ErrorRecord struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type TabularResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// Session is the externally visible state of one query lifecycle. At most
// one of Result and Err is set at any time.
type Session struct {
	State         State          `json:"state"`
	NLQuery       string         `json:"nl_query,omitempty"`
	GeneratedSQL  string         `json:"generated_sql,omitempty"`
	ExecutedSQL   string         `json:"executed_sql,omitempty"`
	Result        *TabularResult `json:"result,omitempty"`
	Err           *ErrorRecord   `json:"error,omitempty"`
	FeedbackGiven bool           `json:"feedback_given"`
	Summary       string         `json:"summary,omitempty"`
}

func (s Session) clone() Session {
	out := s
	if s.Result != nil {
		result := TabularResult{
			Columns:  append([]string(nil), s.Result.Columns...),
			Rows:     make([][]any, len(s.Result.Rows)),
			RowCount: s.Result.RowCount,
		}
		for i, row := range s.Result.Rows {
			result.Rows[i] = append([]any(nil), row...)
		}
		out.Result = &result
	}
	if s.Err != nil {
		record := *s.Err
		out.Err = &record
	}
	return out
}
