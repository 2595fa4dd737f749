package middleware

import (
	"net/http"
	"net/netip"
	"strings"
)

// NewRealIPMiddleware はクライアントIPを決定するミドルウェアを返す。
//
// 直接の接続元がtrustedに含まれるプロキシの場合に限り、X-Forwarded-ForまたはX-Real-IPから
// クライアントIPを取り出してRemoteAddrを書き換える。それ以外の接続元が付けた転送ヘッダーは無視する。
// trustedが空の場合は常にRemoteAddrをそのまま使う。
func NewRealIPMiddleware(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peer, ok := parseAddr(r.RemoteAddr); ok && inPrefixes(trusted, peer) {
				if ip, ok := forwardedClientIP(r.Header, trusted); ok {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClientIP は転送ヘッダーからクライアントIPを返す。
// X-Forwarded-Forは右端から辿り、信頼できるプロキシではない最初のアドレスを採用する。
func forwardedClientIP(h http.Header, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := h.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var leftmost netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			ip, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				// 解析できない経路は偽装の可能性があるため、それより左は信用しない
				break
			}
			if !inPrefixes(trusted, ip) {
				return ip, true
			}
			leftmost = ip
		}
		if leftmost.IsValid() {
			return leftmost, true
		}
	}

	if ip, ok := parseAddr(strings.TrimSpace(h.Get("X-Real-IP"))); ok {
		return ip, true
	}
	return netip.Addr{}, false
}

// parseAddr は "ip" または "ip:port" 形式の文字列をアドレスとして解析する。
func parseAddr(s string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if ip, err := netip.ParseAddr(s); err == nil {
		return ip.Unmap(), true
	}
	return netip.Addr{}, false
}

func inPrefixes(prefixes []netip.Prefix, ip netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
