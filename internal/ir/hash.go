package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainGraph    = "blocksched/graph/v1"
	DomainSchedule = "blocksched/schedule/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphHash computes the content-addressed fingerprint of g, including its
// nested block graphs. Identical circuits built in the same order hash the
// same across runs.
func GraphHash(g *Graph) (string, error) {
	canonical, err := MarshalCanonical(CanonicalForm(g))
	if err != nil {
		return "", fmt.Errorf("GraphHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// ScheduleHash fingerprints an arbitrary canonical description of a
// schedule. Callers build entries with MarshalCanonical-compatible values.
func ScheduleHash(entries []any) (string, error) {
	canonical, err := MarshalCanonical(entries)
	if err != nil {
		return "", fmt.Errorf("ScheduleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchedule, canonical), nil
}

// MustGraphHash is like GraphHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustGraphHash(g *Graph) string {
	h, err := GraphHash(g)
	if err != nil {
		panic(err)
	}
	return h
}
