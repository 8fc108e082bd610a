package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/twilio/twilio-go/client"
)

// SignatureHeader carries the HMAC signature of a Twilio webhook request.
const SignatureHeader = "X-Twilio-Signature"

// SignatureMiddleware rejects webhook requests whose X-Twilio-Signature does not
// match the request URL and form parameters. publicURL replaces the scheme and
// host seen by the server when it runs behind a proxy.
func SignatureMiddleware(authToken, publicURL string, skipper middleware.Skipper) echo.MiddlewareFunc {
	validator := client.NewRequestValidator(authToken)
	publicURL = strings.TrimRight(publicURL, "/")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			signature := c.Request().Header.Get(SignatureHeader)
			if signature == "" {
				return echo.NewHTTPError(http.StatusForbidden, "missing request signature")
			}
			values, err := c.FormParams()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			params := make(map[string]string, len(values))
			for key := range values {
				params[key] = values.Get(key)
			}
			if !validator.Validate(requestURL(c, publicURL), params, signature) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid request signature")
			}
			return next(c)
		}
	}
}

func requestURL(c echo.Context, publicURL string) string {
	base := publicURL
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + c.Request().RequestURI
}
