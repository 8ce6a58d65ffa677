// Package sink appends extracted rows to their destination. The real
// destination is a Google Sheet; dry runs write the same rows to a local
// CSV instead.
package sink

// Header is the fixed sheet layout. Row order matches extraction output.
var Header = []string{
	"Title",
	"Company Name",
	"Location Name",
	"Remote OK",
	"Job Type",
	"Description",
	"Minimum Salary",
	"Maximum Salary",
	"Application Link",
}

type Sink interface {
	// EnsureHeader makes the destination ready to receive rows, writing
	// the header if the destination is empty.
	EnsureHeader() error
	// Append writes rows in order and returns how many were written.
	Append(rows [][]string) (int, error)
}

// Noop drops rows while counting them. Used when a run only needs
// totals, e.g. cache warm-up.
type Noop struct {
	Rows int
}

func (n *Noop) EnsureHeader() error { return nil }

func (n *Noop) Append(rows [][]string) (int, error) {
	n.Rows += len(rows)
	return len(rows), nil
}
