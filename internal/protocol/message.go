package protocol

// Envelopes pushed to live connections. The channel is one-directional:
// clients never send anything the server interprets.

const (
	TypeEntrantAdded   = "entrantAdded"
	TypeEntrantRemoved = "entrantRemoved"
	TypeScoreUpdate    = "scoreUpdate"
)

type EntrantAdded struct {
	Type    string `json:"type"`
	Entrant string `json:"entrant"`
}

type EntrantRemoved struct {
	Type    string `json:"type"`
	Entrant string `json:"entrant"`
}

type ScoreUpdate struct {
	Type      string         `json:"type"`
	JudgeName string         `json:"judgeName"`
	Scores    map[string]int `json:"scores"`
}

func NewEntrantAdded(name string) EntrantAdded {
	return EntrantAdded{Type: TypeEntrantAdded, Entrant: name}
}

func NewEntrantRemoved(name string) EntrantRemoved {
	return EntrantRemoved{Type: TypeEntrantRemoved, Entrant: name}
}

func NewScoreUpdate(judgeName string, scores map[string]int) ScoreUpdate {
	return ScoreUpdate{Type: TypeScoreUpdate, JudgeName: judgeName, Scores: scores}
}
