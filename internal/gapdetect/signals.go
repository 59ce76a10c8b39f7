package gapdetect

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/gapd/internal/interaction"
)

// signatureTokens is how many qualifying tokens form a cluster signature.
const signatureTokens = 3

// minTokenLength excludes short filler words from signatures.
const minTokenLength = 4

// Signature derives the clustering key for a query: lower-cased, tokenized
// on whitespace, tokens longer than four characters kept, the first three
// joined with a space.
//
// The signature is a cheap pre-filter, not a semantic clusterer. Inputs that
// differ only in a trailing qualifying token land in different clusters;
// topic understanding is delegated to the reasoning service per cluster.
func Signature(input string) string {
	fields := strings.Fields(strings.ToLower(input))
	kept := make([]string, 0, signatureTokens)
	for _, tok := range fields {
		if len(tok) > minTokenLength {
			kept = append(kept, tok)
			if len(kept) == signatureTokens {
				break
			}
		}
	}
	return strings.Join(kept, " ")
}

// Cluster is an ephemeral grouping of problematic events sharing a
// signature. It exists only for the duration of a detection run.
type Cluster struct {
	Signature string
	Events    []interaction.Event
}

// Frequency is the member count of the cluster.
func (c Cluster) Frequency() int {
	return len(c.Events)
}

// EscalationCount counts members that were escalated to a human channel.
func (c Cluster) EscalationCount() int {
	n := 0
	for _, e := range c.Events {
		if e.EscalationTarget != "" {
			n++
		}
	}
	return n
}

// LowConfidenceCount counts members answered with low confidence.
func (c Cluster) LowConfidenceCount() int {
	n := 0
	for _, e := range c.Events {
		if strings.EqualFold(e.Confidence, interaction.ConfidenceLow) {
			n++
		}
	}
	return n
}

// Examples returns up to n member inputs, in member order.
func (c Cluster) Examples(n int) []string {
	if n > len(c.Events) {
		n = len(c.Events)
	}
	out := make([]string, 0, n)
	for _, e := range c.Events[:n] {
		out = append(out, e.Input)
	}
	return out
}

// ExtractProblematic filters events down to gap signals: low-confidence
// answers and escalations.
func ExtractProblematic(events []interaction.Event) []interaction.Event {
	out := make([]interaction.Event, 0, len(events))
	for _, e := range events {
		if e.Problematic() {
			out = append(out, e)
		}
	}
	return out
}

// BuildClusters groups events by signature, drops clusters below minSize,
// and returns at most maxClusters ranked by descending member count. The
// ranking is stable: clusters of equal size keep the order in which their
// first member appeared.
func BuildClusters(events []interaction.Event, minSize, maxClusters int) []Cluster {
	bysig := make(map[string]int)
	clusters := make([]Cluster, 0)
	for _, e := range events {
		sig := Signature(e.Input)
		if sig == "" {
			continue
		}
		idx, ok := bysig[sig]
		if !ok {
			idx = len(clusters)
			bysig[sig] = idx
			clusters = append(clusters, Cluster{Signature: sig})
		}
		clusters[idx].Events = append(clusters[idx].Events, e)
	}

	promoted := clusters[:0]
	for _, c := range clusters {
		if c.Frequency() >= minSize {
			promoted = append(promoted, c)
		}
	}

	sort.SliceStable(promoted, func(i, j int) bool {
		return promoted[i].Frequency() > promoted[j].Frequency()
	})

	if maxClusters > 0 && len(promoted) > maxClusters {
		promoted = promoted[:maxClusters]
	}
	return promoted
}
