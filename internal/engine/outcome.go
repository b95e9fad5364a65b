package engine

// Reason explains why an event did not change the room.
type Reason string

const (
	ReasonRoomNotFound      Reason = "room_not_found"
	ReasonPlayerNotFound    Reason = "player_not_found"
	ReasonNotHost           Reason = "not_host"
	ReasonWinnerNotFound    Reason = "winner_not_found"
	ReasonInsufficientChips Reason = "insufficient_chips"
	ReasonInvalidAmount     Reason = "invalid_amount"
	ReasonNotBound          Reason = "not_bound"
	ReasonStillConnected    Reason = "still_connected"
	ReasonConnectionClosed  Reason = "connection_closed"
	ReasonInvariant         Reason = "invariant_violated"
	ReasonStoreError        Reason = "store_error"
)

// Outcome is the result of one room event. Rejected events leave the room
// untouched and publish nothing; the wire never hears about them.
type Outcome struct {
	Applied bool
	Reason  Reason
	Err     error
}

func (o Outcome) String() string {
	if o.Applied {
		return "applied"
	}
	if o.Err != nil {
		return "rejected:" + string(o.Reason) + ": " + o.Err.Error()
	}
	return "rejected:" + string(o.Reason)
}

func applied() Outcome {
	return Outcome{Applied: true}
}

func rejected(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Reason: ReasonStoreError, Err: err}
}
