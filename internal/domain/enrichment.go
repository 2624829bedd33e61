package domain

// Chain identifies the address format family a token matched.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainSolana   Chain = "solana"
	ChainBitcoin  Chain = "bitcoin"
)

// Address kinds, set for Solana addresses only. An ed25519 point decodes
// for wallet keys; program-derived addresses live off the curve.
const (
	AddressKindWallet  = "wallet"
	AddressKindDerived = "derived"
)

// Address is a chain-specific address extracted from message text.
type Address struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`
	Kind    string `json:"kind,omitempty"`
}

// SymbolMatch is a ticker symbol matched against the symbol directory.
type SymbolMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// URLKind classifies an extracted URL by its domain.
type URLKind string

const (
	URLKindDexTracker URLKind = "dex_tracker"
	URLKindExplorer   URLKind = "blockchain_explorer"
	URLKindExchange   URLKind = "exchange"
	URLKindSocial     URLKind = "social_media"
	URLKindUnknown    URLKind = "unknown"
)

// URLRef is a URL extracted from message text.
type URLRef struct {
	URL    string  `json:"url"`
	Domain string  `json:"domain"`
	Kind   URLKind `json:"kind"`
}

// PriceMention is a USD price figure extracted from message text.
type PriceMention struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Sentiment is the classified tone of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	// SentimentUnknown marks a message whose classification degraded:
	// the external classifier failed and no fallback produced a label.
	SentimentUnknown Sentiment = "unknown"
)

// Enrichment carries every extraction result for a message. Each field is
// independently present or degraded; a missing field never blocks indexing.
type Enrichment struct {
	Addresses []Address      `json:"addresses,omitempty"`
	Symbols   []SymbolMatch  `json:"symbols,omitempty"`
	URLs      []URLRef       `json:"urls,omitempty"`
	Prices    []PriceMention `json:"prices,omitempty"`
	Keywords  []string       `json:"keywords,omitempty"`
	Sentiment Sentiment      `json:"sentiment"`

	// Degradation flags record which external lookups failed for this
	// message. They let re-enrichment (via resync or poll) refresh only
	// what was missing.
	SymbolsDegraded   bool `json:"symbols_degraded,omitempty"`
	SentimentDegraded bool `json:"sentiment_degraded,omitempty"`

	EnrichedAtMs int64 `json:"enriched_at_ms"`
}
