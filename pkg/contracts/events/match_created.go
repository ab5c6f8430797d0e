package events

type MatchCreated struct {
	MatchID           string `json:"match_id"`
	OfferID           string `json:"offer_id"`
	CreatorID         string `json:"creator_id"`
	AcceptorID        string `json:"acceptor_id"`
	CreatorAmount     string `json:"creator_amount"`
	AcceptorAmount    string `json:"acceptor_amount"`
	AcceptorSelection string `json:"acceptor_selection"`
	TsUnixMs          int64  `json:"ts_unix_ms"`
}
