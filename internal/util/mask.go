// Package util contiene helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskEmail oculta el email para logs: "ana.perez@example.com" → "a***@e***.com".
// Conserva la primera letra de usuario y dominio y el TLD.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" {
		return maskPart(s)
	}

	labels := strings.Split(domain, ".")
	if len(labels) > 0 {
		labels[0] = maskPart(labels[0])
	}
	return maskPart(local) + "@" + strings.Join(labels, ".")
}

func maskPart(p string) string {
	r := []rune(p)
	if len(r) <= 1 {
		return "***"
	}
	return string(r[0]) + "***"
}
