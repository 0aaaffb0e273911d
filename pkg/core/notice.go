package core

// Severity ranks a notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a blocking notification shown to the user.
type Notice struct {
	Severity Severity
	Title    string
	Body     string
}
