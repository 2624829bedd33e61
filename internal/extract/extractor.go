// Package extract pulls structured data out of raw message text: chain
// addresses, ticker candidates, URLs, price mentions and sentiment keywords.
// Everything here is pure string work; no network calls.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"chatwatch/internal/domain"
)

var (
	ethereumAddressRe = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	solanaAddressRe   = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)
	bitcoinAddressRe  = regexp.MustCompile(`(?:bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}`)
	symbolRe          = regexp.MustCompile(`\b[A-Z]{2,10}\b`)
	urlRe             = regexp.MustCompile(`https?://(?:[-\w.])+(?:[:\d]+)?(?:/(?:[\w/_.])*(?:\?(?:[\w&=%.])*)?(?:#(?:\w*))?)?`)
	priceRe           = regexp.MustCompile(`(?i)\$?(\d+(?:\.\d+)?)\s*(?:USD|USDT|USDC|\$)`)

	// Cleaning patterns applied before ticker matching to avoid false
	// positives from URLs, emails and filenames.
	cleanURLRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://\S+`),
		regexp.MustCompile(`(?i)www\.\S+`),
		regexp.MustCompile(`(?i)[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}(?:/\S*)?`),
	}
	cleanEmailRe   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	cleanFileExtRe = regexp.MustCompile(`\b\w+\.[a-zA-Z]{2,4}\b`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Sentiment keyword sets. Matched as substrings of the lowercased text.
var (
	bullishKeywords = []string{"pump", "moon", "bullish", "buy", "long", "rocket", "up", "rise", "gain"}
	bearishKeywords = []string{"dump", "bear", "bearish", "sell", "short", "crash", "down", "fall", "loss"}
	neutralKeywords = []string{"analysis", "chart", "support", "resistance", "volume", "trading"}
)

// Extractor is stateless and safe for concurrent use.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Addresses extracts chain addresses from text, deduplicated per chain.
func (e *Extractor) Addresses(text string) []domain.Address {
	var out []domain.Address

	for _, a := range dedupe(ethereumAddressRe.FindAllString(text, -1)) {
		out = append(out, domain.Address{Chain: domain.ChainEthereum, Address: a})
	}
	// Blank out hex addresses before the base58-ish scans; the tail of an
	// ethereum address is a legal bitcoin address substring.
	rest := ethereumAddressRe.ReplaceAllString(text, " ")
	for _, a := range dedupe(solanaAddressRe.FindAllString(rest, -1)) {
		kind, ok := solanaAddressKind(a)
		if !ok {
			continue
		}
		out = append(out, domain.Address{Chain: domain.ChainSolana, Address: a, Kind: kind})
	}
	for _, a := range dedupe(bitcoinAddressRe.FindAllString(rest, -1)) {
		out = append(out, domain.Address{Chain: domain.ChainBitcoin, Address: a})
	}
	return out
}

// solanaAddressKind validates a base58 candidate and classifies it. A valid
// address decodes to exactly 32 bytes; points on the ed25519 curve are
// wallet keys, anything else is program-derived.
func solanaAddressKind(addr string) (string, bool) {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return "", false
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return domain.AddressKindDerived, true
	}
	return domain.AddressKindWallet, true
}

// SymbolCandidates returns uppercase ticker candidates from text with URLs,
// emails and filenames stripped first. Used as the fallback when the symbol
// directory is unavailable or matches nothing.
func (e *Extractor) SymbolCandidates(text string) []string {
	cleaned := CleanForMatching(text)
	return dedupe(symbolRe.FindAllString(strings.ToUpper(cleaned), -1))
}

// CleanForMatching strips URLs, email addresses and filename-like tokens so
// ticker matching does not pick up TLDs and extensions.
func CleanForMatching(text string) string {
	cleaned := text
	for _, re := range cleanURLRes {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	cleaned = cleanEmailRe.ReplaceAllString(cleaned, " ")
	cleaned = cleanFileExtRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(cleaned, " "))
}

// URLs extracts and classifies URLs from text.
func (e *Extractor) URLs(text string) []domain.URLRef {
	var out []domain.URLRef
	for _, raw := range dedupe(urlRe.FindAllString(text, -1)) {
		domainName := extractDomain(raw)
		out = append(out, domain.URLRef{
			URL:    raw,
			Domain: domainName,
			Kind:   classifyDomain(domainName),
		})
	}
	return out
}

func extractDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func classifyDomain(domainName string) domain.URLKind {
	d := strings.ToLower(domainName)
	switch {
	case containsAny(d, "dexscreener", "dextools", "birdeye"):
		return domain.URLKindDexTracker
	case containsAny(d, "etherscan", "solscan", "blockchain"):
		return domain.URLKindExplorer
	case containsAny(d, "binance", "coinbase", "okx"):
		return domain.URLKindExchange
	case containsAny(d, "twitter", "telegram", "discord"):
		return domain.URLKindSocial
	default:
		return domain.URLKindUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Prices extracts USD price mentions from text.
func (e *Extractor) Prices(text string) []domain.PriceMention {
	var out []domain.PriceMention
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, domain.PriceMention{Value: v, Currency: "USD"})
	}
	return out
}

// Keywords returns the sentiment keywords present in text, sorted for
// stable output.
func (e *Extractor) Keywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, set := range [][]string{bullishKeywords, bearishKeywords, neutralKeywords} {
		for _, kw := range set {
			if strings.Contains(lower, kw) {
				out = append(out, kw)
			}
		}
	}
	sort.Strings(out)
	return out
}

// KeywordSentiment labels text by comparing bullish and bearish keyword
// counts. Ties and keyword-free text come out neutral.
func (e *Extractor) KeywordSentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)
	var bullish, bearish int
	for _, kw := range bullishKeywords {
		if strings.Contains(lower, kw) {
			bullish++
		}
	}
	for _, kw := range bearishKeywords {
		if strings.Contains(lower, kw) {
			bearish++
		}
	}
	switch {
	case bullish > bearish:
		return domain.SentimentPositive
	case bearish > bullish:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
