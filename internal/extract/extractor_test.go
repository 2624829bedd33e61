package extract

import (
	"reflect"
	"testing"

	"chatwatch/internal/domain"
)

func TestAddresses_Ethereum(t *testing.T) {
	e := New()

	got := e.Addresses("aped 0x1234567890abcdef1234567890abcdef12345678 hard")
	if len(got) != 1 {
		t.Fatalf("Expected 1 address, got %d", len(got))
	}
	if got[0].Chain != domain.ChainEthereum {
		t.Errorf("Chain mismatch: %s", got[0].Chain)
	}
	if got[0].Address != "0x1234567890abcdef1234567890abcdef12345678" {
		t.Errorf("Address mismatch: %s", got[0].Address)
	}
}

func TestAddresses_EthereumTooShort(t *testing.T) {
	e := New()

	got := e.Addresses("not an address: 0x1234abcd")
	if len(got) != 0 {
		t.Errorf("Expected no addresses, got %v", got)
	}
}

func TestAddresses_SolanaValidated(t *testing.T) {
	e := New()

	// 44-char base58 that decodes to 32 bytes (USDC mint).
	got := e.Addresses("new pool for EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v live")
	if len(got) != 1 {
		t.Fatalf("Expected 1 address, got %d: %v", len(got), got)
	}
	if got[0].Chain != domain.ChainSolana {
		t.Errorf("Chain mismatch: %s", got[0].Chain)
	}
	if got[0].Kind == "" {
		t.Error("Expected solana address kind to be set")
	}
}

func TestAddresses_SolanaRejectsWrongLength(t *testing.T) {
	e := New()

	// 35 base58 chars but decodes to fewer than 32 bytes.
	got := e.Addresses("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	for _, a := range got {
		if a.Chain == domain.ChainSolana {
			t.Errorf("Expected no solana match, got %v", a)
		}
	}
}

func TestAddresses_SolanaOnCurveWallet(t *testing.T) {
	e := New()

	// The system program id decodes to 32 zero bytes, which is a valid
	// curve point encoding.
	got := e.Addresses("sent from 11111111111111111111111111111111 ok")
	if len(got) != 1 {
		t.Fatalf("Expected 1 address, got %d: %v", len(got), got)
	}
	if got[0].Kind != domain.AddressKindWallet {
		t.Errorf("Expected wallet kind, got %s", got[0].Kind)
	}
}

func TestAddresses_Bitcoin(t *testing.T) {
	e := New()

	tests := []string{
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
	}
	for _, addr := range tests {
		got := e.Addresses("send to " + addr + " now")
		found := false
		for _, a := range got {
			if a.Chain == domain.ChainBitcoin && a.Address == addr {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected bitcoin address %s, got %v", addr, got)
		}
	}
}

func TestSymbolCandidates(t *testing.T) {
	e := New()

	got := e.SymbolCandidates("BTC and ETH looking strong, also PEPE")
	want := map[string]bool{"BTC": true, "ETH": true, "PEPE": true}
	for _, s := range got {
		delete(want, s)
	}
	if len(want) != 0 {
		t.Errorf("Missing symbols %v in %v", want, got)
	}
}

func TestSymbolCandidates_IgnoresURLsAndFiles(t *testing.T) {
	e := New()

	got := e.SymbolCandidates("check https://DEXSCREENER.com/SOL and report.PDF")
	for _, s := range got {
		if s == "COM" || s == "PDF" || s == "HTTPS" {
			t.Errorf("Leaked token %s from stripped text: %v", s, got)
		}
	}
}

func TestCleanForMatching(t *testing.T) {
	got := CleanForMatching("visit https://example.com/page and see  the   report.pdf")
	if got != "visit and see the" {
		t.Errorf("Cleaned text mismatch: %q", got)
	}
}

func TestURLs_Classification(t *testing.T) {
	e := New()

	tests := []struct {
		url  string
		kind domain.URLKind
	}{
		{"https://dexscreener.com/solana/abc", domain.URLKindDexTracker},
		{"https://etherscan.io/tx/0xdead", domain.URLKindExplorer},
		{"https://www.binance.com/en/trade", domain.URLKindExchange},
		{"https://twitter.com/someone", domain.URLKindSocial},
		{"https://example.com/whatever", domain.URLKindUnknown},
	}
	for _, tt := range tests {
		got := e.URLs("look: " + tt.url)
		if len(got) != 1 {
			t.Fatalf("Expected 1 URL for %s, got %d", tt.url, len(got))
		}
		if got[0].Kind != tt.kind {
			t.Errorf("Kind mismatch for %s: got %s, want %s", tt.url, got[0].Kind, tt.kind)
		}
		if got[0].Domain == "" {
			t.Errorf("Empty domain for %s", tt.url)
		}
	}
}

func TestPrices(t *testing.T) {
	e := New()

	got := e.Prices("entry at $0.0045, target 12 USDT")
	if len(got) != 2 {
		t.Fatalf("Expected 2 prices, got %d: %v", len(got), got)
	}
	if got[0].Value != 0.0045 {
		t.Errorf("First price mismatch: %v", got[0].Value)
	}
	if got[1].Value != 12 {
		t.Errorf("Second price mismatch: %v", got[1].Value)
	}
	for _, p := range got {
		if p.Currency != "USD" {
			t.Errorf("Currency mismatch: %s", p.Currency)
		}
	}
}

func TestKeywords(t *testing.T) {
	e := New()

	// Substring matching also catches "up" inside "pump".
	got := e.Keywords("This PUMP will moon, check the chart")
	want := []string{"chart", "moon", "pump", "up"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords mismatch: got %v, want %v", got, want)
	}
}

func TestKeywordSentiment(t *testing.T) {
	e := New()

	tests := []struct {
		text string
		want domain.Sentiment
	}{
		{"pump it to the moon, easy gain", domain.SentimentPositive},
		{"total dump, crash incoming, sell now", domain.SentimentNegative},
		{"buy the dip, then sell the top", domain.SentimentNeutral},
		{"nothing relevant here", domain.SentimentNeutral},
	}
	for _, tt := range tests {
		if got := e.KeywordSentiment(tt.text); got != tt.want {
			t.Errorf("KeywordSentiment(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}
