package domain

import (
	"encoding/json"
	"time"
)

// Topic names, one per event kind. They are part of the bus contract and must stay stable.
const (
	TopicRegisterPlayer   = "register-player"
	TopicPurchaseGame     = "purchase-game"
	TopicReviewGame       = "review-game"
	TopicInstallGame      = "install-game"
	TopicUpdateGame       = "update-game"
	TopicUninstallGame    = "uninstall-game"
	TopicAddPlayTime      = "add-play-time"
	TopicReportCrash      = "report-crash"
	TopicAddWishedGame    = "add-wished-game"
	TopicRemoveWishedGame = "remove-wished-game"
	TopicReactReview      = "react-review"
	TopicAskPlayerPage    = "ask-player-page"
	TopicAskGamesPage     = "ask-games-page"
	TopicAskGameReviews   = "ask-game-reviews"

	TopicGameDistributed  = "game-distributed"
	TopicPatchDistributed = "patch-distributed"
	TopicSaleStarted      = "sale-started"
	TopicSendGameFile     = "send-game-file"
	TopicReviewRefused    = "review-refused"
	TopicSendPlayerPage   = "send-player-page"
	TopicSendGamesPage    = "send-games-page"
	TopicSendGameReviews  = "send-game-reviews"
)

// InboundTopics lists the distributor topics this service listens to.
var InboundTopics = []string{
	TopicGameDistributed,
	TopicPatchDistributed,
	TopicSaleStarted,
	TopicSendGameFile,
	TopicReviewRefused,
	TopicSendPlayerPage,
	TopicSendGamesPage,
	TopicSendGameReviews,
}

// Event is a typed payload bound to exactly one topic.
type Event interface {
	Topic() string
}

// ConsumeLog is an audit entry appended once per received inbound event,
// whatever the outcome of processing. Entries are never mutated.
type ConsumeLog struct {
	Seq        int64           `json:"seq"`
	Listener   string          `json:"listener"`
	ConsumedAt time.Time       `json:"consumed_at"`
	RoutingKey string          `json:"routing_key"`
	Event      json.RawMessage `json:"event"`
}
