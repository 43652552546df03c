package types

import "time"

// Side is the direction of an order or intent.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Relevance score scale produced by classifiers. Anything outside
// [-1, 4] is rejected at the boundary.
const (
	ScoreMin     = -1
	ScoreNeutral = 0
	ScoreMax     = 4
)

// ValidScore reports whether s is inside the closed classifier scale.
func ValidScore(s int) bool {
	return s >= ScoreMin && s <= ScoreMax
}

// Item is one entry returned by a source adapter poll.
type Item struct {
	ContentID  string
	RawContent string
	Timestamp  time.Time
}

// Observation is an immutable record of one piece of source content.
// Created by a source monitor, consumed once by the orchestrator.
type Observation struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	ContentID  string    `json:"content_id"`
	RawContent string    `json:"raw_content"`
	ObservedAt time.Time `json:"observed_at"`
	IsNew      bool      `json:"is_new"`
}

// Classification is one classifier's relevance judgment for an observation.
type Classification struct {
	ObservationID string    `json:"observation_id"`
	ClassifierID  string    `json:"classifier_id"`
	Score         int       `json:"score"`
	Confidence    float64   `json:"confidence"`
	ProducedAt    time.Time `json:"produced_at"`
}

// Consensus is the deterministic reduction of a set of classifications
// for a single observation.
type Consensus struct {
	ObservationID  string  `json:"observation_id"`
	ContractID     string  `json:"contract_id"`
	OutcomeID      string  `json:"outcome_id"`
	ResolvedScore  int     `json:"resolved_score"`
	AgreementRatio float64 `json:"agreement_ratio"`
	DissentCount   int     `json:"dissent_count"`
	Respondents    int     `json:"respondents"`
	LowConfidence  bool    `json:"low_confidence"`
}

// Contract is a tradable instrument with a finite outcome set.
type Contract struct {
	ID           string
	Outcomes     []string
	TickSize     float64
	MultiOutcome bool
}

// Position is the held quantity for one contract outcome. Mutated only
// by applied fills.
type Position struct {
	ContractID string  `json:"contract_id"`
	OutcomeID  string  `json:"outcome_id"`
	Quantity   int     `json:"quantity"`
	AvgPrice   float64 `json:"avg_price"`
}

// Exposure is the capital committed to this position.
func (p Position) Exposure() float64 {
	return float64(p.Quantity) * p.AvgPrice
}

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64
	Size  int
}

// OrderBookSnapshot is the full known depth for one contract outcome.
// Asks sorted ascending, bids descending.
type OrderBookSnapshot struct {
	ContractID string
	OutcomeID  string
	Bids       []PriceLevel
	Asks       []PriceLevel
	UpdatedAt  time.Time
}

// BookDelta is an incremental order book level update. Size 0 removes
// the level.
type BookDelta struct {
	ContractID string
	OutcomeID  string
	Side       Side
	Price      float64
	Size       int
	Ts         time.Time
}

// TradingIntent exists only between decision and submission. FlattenOutcomes
// lists currently held outcomes that must be closed before or alongside the
// entry on a multi-outcome contract.
type TradingIntent struct {
	ID              string   `json:"id"`
	ContractID      string   `json:"contract_id"`
	OutcomeID       string   `json:"outcome_id"`
	Side            Side     `json:"side"`
	PriceCap        float64  `json:"price_cap"`
	MaxQuantity     int      `json:"max_quantity"`
	ObservationID   string   `json:"observation_id"`
	AgreementRatio  float64  `json:"agreement_ratio"`
	FlattenOutcomes []string `json:"flatten_outcomes,omitempty"`
}

// Order is the venue-facing representation of one leg of an intent.
type Order struct {
	ID         string  `json:"id"`
	IntentID   string  `json:"intent_id"`
	ContractID string  `json:"contract_id"`
	OutcomeID  string  `json:"outcome_id"`
	Side       Side    `json:"side"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Tag        string  `json:"tag"`
}

// Fill is an execution received from the gateway.
type Fill struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	ContractID string    `json:"contract_id"`
	OutcomeID  string    `json:"outcome_id"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Ts         time.Time `json:"ts"`
}

// RejectionReason is the venue's rejection taxonomy.
type RejectionReason string

const (
	RejectPriceOutOfRange       RejectionReason = "price_out_of_range"
	RejectInsufficientLiquidity RejectionReason = "insufficient_liquidity"
	RejectRateLimited           RejectionReason = "rate_limited"
	RejectAuthError             RejectionReason = "auth_error"
)

// Order result statuses.
const (
	OrderFilled   = "FILLED"
	OrderRejected = "REJECTED"
)

// OrderResult is the synchronous outcome of an order submission.
type OrderResult struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Fill    *Fill           `json:"fill,omitempty"`
	Reason  RejectionReason `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

// SubmitResult aggregates the outcomes of every leg of one intent.
type SubmitResult struct {
	IntentID   string        `json:"intent_id"`
	Results    []OrderResult `json:"results"`
	Reconciled bool          `json:"reconciled"`
}

// GatewayEvent is one message from the gateway push feed. Exactly one
// field is non-nil.
type GatewayEvent struct {
	Snapshot *OrderBookSnapshot
	Delta    *BookDelta
	Fill     *Fill
}

// Contract decision states.
const (
	StateIdle       = "IDLE"
	StateEvaluating = "EVALUATING"
	StateApproved   = "APPROVED"
	StateSubmitted  = "SUBMITTED"
	StateFilled     = "FILLED"
	StateRejected   = "REJECTED"
	StateSuppressed = "SUPPRESSED"
)

// DecisionResult reports what the engine did with one consensus.
type DecisionResult struct {
	ContractID string         `json:"contract_id"`
	OutcomeID  string         `json:"outcome_id"`
	State      string         `json:"state"`
	Intent     *TradingIntent `json:"intent,omitempty"`
	Submit     *SubmitResult  `json:"submit,omitempty"`
	Reason     string         `json:"reason"`
}

// RiskLimits is process-wide risk configuration, read-only after load.
type RiskLimits struct {
	MaxExposurePerContract float64
	MaxTotalExposure       float64
	MaxOrderNotional       float64
}
