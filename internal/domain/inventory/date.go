package inventory

import (
	"time"

	"github.com/RobertAguilera712/ERPDentalCare/pkg/dates"
)

// Day truncates t to midnight UTC. Expiration checks compare Days.
func Day(t time.Time) time.Time {
	return dates.Day(t)
}
