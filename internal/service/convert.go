package service

import (
	"database/sql"
	"net"

	"github.com/sqlc-dev/pqtype"
)

// inetFromIP converts a client IP string for an INET column.
// Unparseable or empty input yields NULL.
func inetFromIP(ip string) pqtype.Inet {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return pqtype.Inet{}
	}
	bits := 128
	if v4 := parsed.To4(); v4 != nil {
		parsed = v4
		bits = 32
	}
	return pqtype.Inet{
		IPNet: net.IPNet{IP: parsed, Mask: net.CIDRMask(bits, bits)},
		Valid: true,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
