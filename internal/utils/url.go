package utils

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

var inviteHosts = map[string]string{
	"discord.gg":         "",
	"discord.com":        "/invite",
	"discordapp.com":     "/invite",
	"www.discord.com":    "/invite",
	"www.discordapp.com": "/invite",
}

var ErrNotInvite = errors.New("not a discord invite")

func NormalizeURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

// NormalizeInvite turns any accepted spelling of a Discord invite into https://discord.gg/<code>.
func NormalizeInvite(raw string) (string, error) {
	normalized, host, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	prefix, ok := inviteHosts[host]
	if !ok {
		return "", ErrNotInvite
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}

	if prefix != "" && !strings.HasPrefix(parsed.Path, prefix+"/") {
		return "", ErrNotInvite
	}
	code := strings.Trim(strings.TrimPrefix(parsed.Path, prefix), "/")
	if code == "" || strings.Contains(code, "/") {
		return "", ErrNotInvite
	}
	return "https://discord.gg/" + code, nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}
