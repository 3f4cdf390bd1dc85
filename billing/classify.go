/*
classify.go - Obligation status derivation and reporting buckets

PURPOSE:
  Assigns every obligation its status from paid amount vs. total amount
  vs. due date, and partitions obligations into the due-today, upcoming,
  and overdue views the dashboard reports.

STATUS MACHINE:
  Status is recomputed from state, never transitioned by events:

    paid     if Paid >= Total
    partial  if Paid > 0
    overdue  if now > DueDate
    pending  otherwise

  Evaluation order matters: the paid check comes first, so an old overdue
  obligation that gets fully paid flips to paid rather than staying
  overdue.
*/
package billing

// StatusFor derives an obligation's status at the reference date.
func StatusFor(o *Obligation, now TimePoint) ObligationStatus {
	switch {
	case o.Paid.GreaterThanOrEqual(o.Total):
		return StatusPaid
	case o.Paid.IsPositive():
		return StatusPartial
	case now.After(o.DueDate):
		return StatusOverdue
	default:
		return StatusPending
	}
}

// =============================================================================
// REPORTING BUCKETS
// =============================================================================

// DefaultUpcomingWindowDays is the lookahead for the upcoming bucket.
const DefaultUpcomingWindowDays = 7

// Buckets partitions non-paid obligations by due date for reporting.
type Buckets struct {
	DueToday []*Obligation
	Upcoming []*Obligation
	Overdue  []*Obligation
}

// Classify buckets obligations against the reference date and a lookahead
// window in days (0 means the default 7). Paid obligations are excluded
// everywhere. DueToday and Overdue cover pending and partial records;
// Upcoming only pending, since a partial payment on a future due date
// needs no reminder.
func Classify(obs []*Obligation, now TimePoint, windowDays int) Buckets {
	if windowDays <= 0 {
		windowDays = DefaultUpcomingWindowDays
	}
	horizon := now.AddDays(windowDays)

	var b Buckets
	for _, o := range obs {
		switch status := StatusFor(o, now); {
		case status == StatusPaid:
			continue
		case o.DueDate.Equal(now):
			b.DueToday = append(b.DueToday, o)
		case o.DueDate.Before(now):
			b.Overdue = append(b.Overdue, o)
		case status == StatusPending && o.DueDate.BeforeOrEqual(horizon):
			b.Upcoming = append(b.Upcoming, o)
		}
	}
	return b
}
