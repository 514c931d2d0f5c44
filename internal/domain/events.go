package domain

import "time"

// Outbound events (player side).

type RegisterPlayer struct {
	DistributorID int64     `json:"distributorId"`
	Pseudo        string    `json:"pseudo"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	BirthDate     time.Time `json:"birthDate"`
}

func (RegisterPlayer) Topic() string { return TopicRegisterPlayer }

type PurchaseGame struct {
	PlayerID int64 `json:"playerId"`
	GameID   int64 `json:"gameId"`
}

func (PurchaseGame) Topic() string { return TopicPurchaseGame }

type ReviewGame struct {
	PlayerID int64   `json:"playerId"`
	GameID   int64   `json:"gameId"`
	Rating   int     `json:"rating"`
	Comment  *string `json:"comment"`
}

func (ReviewGame) Topic() string { return TopicReviewGame }

type InstallGame struct {
	PlayerID int64    `json:"playerId"`
	GameID   int64    `json:"gameId"`
	Platform Platform `json:"platform"`
}

func (InstallGame) Topic() string { return TopicInstallGame }

type UpdateGame struct {
	PlayerID         int64    `json:"playerId"`
	GameID           int64    `json:"gameId"`
	Platform         Platform `json:"platform"`
	InstalledVersion string   `json:"installedVersion"`
}

func (UpdateGame) Topic() string { return TopicUpdateGame }

type UninstallGame struct {
	PlayerID int64    `json:"playerId"`
	GameID   int64    `json:"gameId"`
	Platform Platform `json:"platform"`
	Comment  *string  `json:"comment"`
}

func (UninstallGame) Topic() string { return TopicUninstallGame }

// AddPlayTime carries the exact elapsed play time in milliseconds.
type AddPlayTime struct {
	PlayerID int64 `json:"playerId"`
	GameID   int64 `json:"gameId"`
	Time     int64 `json:"time"`
}

func (AddPlayTime) Topic() string { return TopicAddPlayTime }

type ReportCrash struct {
	PlayerID         int64    `json:"playerId"`
	GameID           int64    `json:"gameId"`
	Platform         Platform `json:"platform"`
	InstalledVersion string   `json:"installedVersion"`
	ErrorCode        int64    `json:"errorCode"`
	Message          string   `json:"message"`
}

func (ReportCrash) Topic() string { return TopicReportCrash }

type AddWishedGame struct {
	PlayerID int64 `json:"playerId"`
	GameID   int64 `json:"gameId"`
}

func (AddWishedGame) Topic() string { return TopicAddWishedGame }

type RemoveWishedGame struct {
	PlayerID int64 `json:"playerId"`
	GameID   int64 `json:"gameId"`
}

func (RemoveWishedGame) Topic() string { return TopicRemoveWishedGame }

type ReactReview struct {
	PlayerID  int64     `json:"playerId"`
	ReviewID  int64     `json:"reviewId"`
	ReactType ReactType `json:"reactType"`
}

func (ReactReview) Topic() string { return TopicReactReview }

type AskPlayerPage struct {
	PlayerID int64 `json:"playerId"`
}

func (AskPlayerPage) Topic() string { return TopicAskPlayerPage }

type AskGamesPage struct {
	PlayerID int64 `json:"playerId"`
	Page     int   `json:"page"`
}

func (AskGamesPage) Topic() string { return TopicAskGamesPage }

type AskGameReviews struct {
	PlayerID int64 `json:"playerId"`
	GameID   int64 `json:"gameId"`
}

func (AskGameReviews) Topic() string { return TopicAskGameReviews }

// Inbound events (distributor side).

type GameDistributed struct {
	DistributorID int64  `json:"distributorId"`
	GameID        int64  `json:"gameId"`
	GameName      string `json:"gameName"`
}

func (GameDistributed) Topic() string { return TopicGameDistributed }

type PatchDistributed struct {
	DistributorID int64  `json:"distributorId"`
	GameID        int64  `json:"gameId"`
	NewVersion    string `json:"newVersion"`
	GameName      string `json:"gameName"`
}

func (PatchDistributed) Topic() string { return TopicPatchDistributed }

// SaleStarted carries the discount as a fraction in [0,1].
type SaleStarted struct {
	DistributorID  int64   `json:"distributorId"`
	GameID         int64   `json:"gameId"`
	GameName       string  `json:"gameName"`
	SalePercentage float64 `json:"salePercentage"`
}

func (SaleStarted) Topic() string { return TopicSaleStarted }

// SendGameFile is the only inbound event that mutates installation state.
// Platform stays a string here: the distributor may send values this service does not know.
type SendGameFile struct {
	TargetID   int64  `json:"targetId"`
	GameID     int64  `json:"gameId"`
	Version    string `json:"version"`
	GameName   string `json:"gameName"`
	Platform   string `json:"platform"`
	PlayerName string `json:"playerName"`
}

func (SendGameFile) Topic() string { return TopicSendGameFile }

type ReviewRefused struct {
	ReviewID   int64  `json:"reviewId"`
	PlayerName string `json:"playerName"`
	GameName   string `json:"gameName"`
}

func (ReviewRefused) Topic() string { return TopicReviewRefused }

type SendPlayerPage struct {
	Page string `json:"page"`
}

func (SendPlayerPage) Topic() string { return TopicSendPlayerPage }

type SendGamesPage struct {
	Page string `json:"page"`
}

func (SendGamesPage) Topic() string { return TopicSendGamesPage }

type SendGameReviews struct {
	Page string `json:"page"`
}

func (SendGameReviews) Topic() string { return TopicSendGameReviews }
