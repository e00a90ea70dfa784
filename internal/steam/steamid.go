// Package steam provides platform-identity canonicalization. Every player
// identifier that enters the pipeline — decimal SteamID64, hex XUID, or the
// legacy STEAM_X:Y:Z form — is normalized to a SteamID64, the sole stable
// join key across events, stats and external profile lookups.
package steam

import (
	"fmt"
	"strconv"
	"strings"
)

// steam64Base is the offset between 32-bit account numbers and SteamID64.
const steam64Base uint64 = 76561197960265728

// ParseID normalizes any of the identifier forms the external parser has
// been seen to emit into a SteamID64:
//
//	76561198012345678        decimal SteamID64
//	0x110000101D234CE        hex XUID (case-insensitive, with or without 0x)
//	STEAM_1:0:26039975       legacy Steam2
//
// Returns an error for empty, zero, or unparseable input.
func ParseID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("steam id: empty")
	}

	if strings.HasPrefix(strings.ToUpper(s), "STEAM_") {
		return parseSteam2(s)
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("steam id: bad hex %q: %w", s, err)
		}
		return validated(id)
	}

	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		return validated(id)
	}

	// Some legacy dumps strip the 0x prefix from XUIDs. Only accept the
	// hex reading if it lands in the SteamID64 universe.
	if id, err := strconv.ParseUint(s, 16, 64); err == nil && id > steam64Base {
		return id, nil
	}
	return 0, fmt.Errorf("steam id: unparseable %q", s)
}

func validated(id uint64) (uint64, error) {
	if id == 0 {
		return 0, fmt.Errorf("steam id: zero")
	}
	return id, nil
}

func parseSteam2(s string) (uint64, error) {
	parts := strings.Split(s[len("STEAM_"):], ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("steam id: malformed steam2 %q", s)
	}
	y, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || y > 1 {
		return 0, fmt.Errorf("steam id: bad steam2 Y in %q", s)
	}
	z, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("steam id: bad steam2 Z in %q", s)
	}
	return steam64Base + z*2 + y, nil
}

// IsID64 reports whether id falls in the SteamID64 individual-account
// range. Engine-local user ids (small integers) do not.
func IsID64(id uint64) bool {
	return id > steam64Base
}

// ToSteam2 renders a SteamID64 in the legacy STEAM_1:Y:Z display form used
// by older tooling.
func ToSteam2(id uint64) string {
	if id < steam64Base {
		return strconv.FormatUint(id, 10)
	}
	y := id % 2
	z := (id - steam64Base - y) / 2
	return fmt.Sprintf("STEAM_1:%d:%d", y, z)
}
