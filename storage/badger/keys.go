package badger

import (
	"encoding/binary"
	"strings"
)

// Key prefixes for different data types
const (
	breakdownPrefix      = "obrec:"
	breakdownStylePrefix = "obsty:"
	breakdownCodePrefix  = "obcode:"
	allocationPrefix     = "alrec:"
	importPrefix         = "import:"
)

// styleSeparator ends the style type inside a style index key.
const styleSeparator = 0x00

// appendID writes id in BigEndian order so lexicographic sort works correctly.
func appendID(buf []byte, id int64) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeBreakdownKey generates the primary key of a breakdown.
// Format: prefix:tenantID:layoutID
func makeBreakdownKey(tenantID, layoutID int64) []byte {
	buf := make([]byte, 0, len(breakdownPrefix)+16)
	buf = append(buf, breakdownPrefix...)
	buf = appendID(buf, tenantID)
	return appendID(buf, layoutID)
}

// makeTenantStylePrefix generates a partial style index key for one tenant.
// Format: prefix:tenantID
func makeTenantStylePrefix(tenantID int64) []byte {
	buf := make([]byte, 0, len(breakdownStylePrefix)+8)
	buf = append(buf, breakdownStylePrefix...)
	return appendID(buf, tenantID)
}

// makeStylePrefix generates a partial style index key for one style type.
// Format: prefix:tenantID:style\x00
func makeStylePrefix(tenantID int64, styleType string) []byte {
	buf := makeTenantStylePrefix(tenantID)
	buf = append(buf, strings.TrimSpace(styleType)...)
	return append(buf, styleSeparator)
}

// makeStyleKey generates a composite key for the style index.
// Format: prefix:tenantID:style\x00layoutID
func makeStyleKey(tenantID int64, styleType string, layoutID int64) []byte {
	return appendID(makeStylePrefix(tenantID, styleType), layoutID)
}

// parseStyleKey extracts the style type and layout id from a style index key.
func parseStyleKey(key []byte) (string, int64, bool) {
	head := len(breakdownStylePrefix) + 8
	if len(key) < head+1+8 || key[len(key)-9] != styleSeparator {
		return "", 0, false
	}
	style := string(key[head : len(key)-9])
	layoutID := int64(binary.BigEndian.Uint64(key[len(key)-8:]))
	return style, layoutID, true
}

// makeLayoutCodeKey generates a key for breakdown lookup by layout code.
// Format: prefix:tenantID:code
func makeLayoutCodeKey(tenantID int64, layoutCode string) []byte {
	buf := make([]byte, 0, len(breakdownCodePrefix)+8+len(layoutCode))
	buf = append(buf, breakdownCodePrefix...)
	buf = appendID(buf, tenantID)
	return append(buf, layoutCode...)
}

// makeLayoutAllocationPrefix generates a partial key for one layout's allocations.
// Format: prefix:layoutID
func makeLayoutAllocationPrefix(layoutID int64) []byte {
	buf := make([]byte, 0, len(allocationPrefix)+8)
	buf = append(buf, allocationPrefix...)
	return appendID(buf, layoutID)
}

// makeAllocationKey generates a key for an allocation.
// Format: prefix:layoutID:allocationID
func makeAllocationKey(layoutID, allocationID int64) []byte {
	return appendID(makeLayoutAllocationPrefix(layoutID), allocationID)
}

// makeImportKey generates a key for the import record of a source.
func makeImportKey(source string) []byte {
	return []byte(importPrefix + source)
}
