package middleware

import (
	"net"
	"strings"

	deliverycontext "tenantauth/internal/delivery/context"
	"tenantauth/internal/domain/entity"
	"tenantauth/internal/util"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// NewIPExtractor reads X-Forwarded-For from the right and stops at the first hop that is not a
// trusted proxy, so a client cannot pick its own address by prepending entries. With no ranges
// configured echo's defaults apply: loopback, link-local and private networks are proxies.
func NewIPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPFromXFFHeader(), nil
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trusted proxy range %q", cidr)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}

	return echo.ExtractIPFromXFFHeader(opts...), nil
}

// ClientIP is the caller address as resolved by the server's IP extractor.
func ClientIP(c echo.Context) string {
	return c.RealIP()
}

// ClientMeta collects the caller details recorded with sessions and audit events.
func ClientMeta(c echo.Context) entity.ClientMeta {
	return entity.ClientMeta{
		IPAddress: util.TruncateString(ClientIP(c), entity.MaxIPAddressLength),
		UserAgent: util.TruncateString(c.Request().UserAgent(), entity.MaxUserAgentLength),
		RequestID: deliverycontext.GetRequestID(c),
	}
}
