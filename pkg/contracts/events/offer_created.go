package events

type OfferCreated struct {
	OfferID        string `json:"offer_id"`
	CreatorID      string `json:"creator_id"`
	EventID        string `json:"event_id,omitempty"`
	Selection      string `json:"selection"`
	Amount         string `json:"amount"` // decimal serializado como string
	Mode           string `json:"mode"`   // "direct" | "random"
	TargetUserCode string `json:"target_user_code,omitempty"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
