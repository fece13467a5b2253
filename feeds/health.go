package feeds

// Health values reported for a feed.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthOutage   = "outage"
)

// Health classifies a poller state for display. A failure with nothing
// cached is an outage; a failure over cached data is degraded, since the
// data is kept and only a warning is due.
func Health(hasData bool, errMsg string) string {
	switch {
	case errMsg == "":
		return HealthOK
	case hasData:
		return HealthDegraded
	}
	return HealthOutage
}
