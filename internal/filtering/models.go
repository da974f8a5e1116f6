package filtering

// Stage names double as drop reasons in metrics and logs.
const (
	ReasonEventType     = "event_type"
	ReasonKeepAlive     = "keep_alive"
	ReasonMACPrefix     = "mac_prefix"
	ReasonPosition      = "position"
	ReasonExpression    = "expression"
	ReasonDedupWindow   = "dedup_window"
	ReasonDedupDistance = "dedup_distance"
)

// Decision is the outcome of running one event through the chain. Reason is
// empty when the event is forwarded.
type Decision struct {
	Forward bool
	Reason  string
}

func forward() Decision {
	return Decision{Forward: true}
}

func reject(reason string) Decision {
	return Decision{Reason: reason}
}
