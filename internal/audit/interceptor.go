package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// LocalsUserID is the fiber locals key under which the authentication
// middleware stores the acting user's id.
const LocalsUserID = "userID"

// skipPaths are request path prefixes the interceptor never records.
// Auditing the audit reader would double every review request.
var skipPaths = []string{
	"/api/audit",
	"/api/health",
	"/favicon.ico",
	"/api/docs",
	"/api-json",
	"/metrics",
}

func shouldSkip(path string) bool {
	for _, prefix := range skipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// classifyAction maps an HTTP method to an audit action.
func classifyAction(method string) models.AuditAction {
	switch method {
	case fiber.MethodPost:
		return models.AuditCreate
	case fiber.MethodPut, fiber.MethodPatch:
		return models.AuditUpdate
	case fiber.MethodDelete:
		return models.AuditDelete
	default:
		return models.AuditRead
	}
}

// classifyEntity maps a request path to the entity kind it concerns.
func classifyEntity(path string) models.AuditEntity {
	switch {
	case strings.Contains(path, "/users"):
		return models.EntityUser
	case strings.Contains(path, "/instances"):
		return models.EntityProductInstance
	case strings.Contains(path, "/products"):
		return models.EntityProduct
	case strings.Contains(path, "/loans"):
		return models.EntityLoan
	case strings.Contains(path, "/volunteers"):
		return models.EntityVolunteerActivity
	case strings.Contains(path, "/auth"):
		return models.EntityAuth
	default:
		return models.EntitySystem
	}
}

// clientIP resolves the caller address behind proxies: forwarded
// headers win over the socket peer.
func clientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}

		return strings.TrimSpace(xff)
	}

	if real := c.Get("X-Real-Ip"); real != "" {
		return real
	}

	return c.IP()
}

// entityIDFromPath returns the last path segment when it is a UUID.
func entityIDFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	last := segments[len(segments)-1]

	if _, err := uuid.Parse(last); err != nil {
		return ""
	}

	return last
}

// Interceptor returns middleware that records every API request in the
// audit trail. Entries are written on a separate goroutine so a slow or
// failing audit write never delays the response. Handler errors pass
// through unchanged.
func (s *Service) Interceptor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Fiber's ctx strings alias fasthttp's reusable request
		// buffers; copy them so the async record sees stable values.
		path := strings.Clone(c.Path())
		if shouldSkip(path) {
			return c.Next()
		}

		method := strings.Clone(c.Method())

		var body interface{}
		if method != fiber.MethodGet && len(c.Body()) > 0 {
			// Best effort; non-JSON bodies are simply not recorded.
			_ = json.Unmarshal(c.Body(), &body)
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start).Milliseconds()

		entry := &models.AuditLog{
			Action:        classifyAction(method),
			EntityType:    classifyEntity(path),
			EntityID:      entityIDFromPath(path),
			IPAddress:     strings.Clone(clientIP(c)),
			UserAgent:     strings.Clone(c.Get(fiber.HeaderUserAgent)),
			Description:   fmt.Sprintf("%s %s", method, path),
			Endpoint:      path,
			HTTPMethod:    method,
			ExecutionTime: elapsed,
		}

		if userID, ok := c.Locals(LocalsUserID).(string); ok {
			entry.UserID = userID
		}

		snapshot := map[string]interface{}{}
		if body != nil {
			snapshot["request"] = body
		}

		if err != nil {
			entry.Action = models.AuditError
			entry.ErrorMessage = err.Error()
			entry.StatusCode = statusFromError(err)
		} else {
			entry.StatusCode = c.Response().StatusCode()

			var response interface{}
			if json.Unmarshal(c.Response().Body(), &response) == nil {
				snapshot["response"] = response
			}
		}

		if len(snapshot) > 0 {
			entry.Metadata = Sanitize(snapshot)
		}

		go s.record(entry)

		return err
	}
}

func statusFromError(err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	return fiber.StatusInternalServerError
}
