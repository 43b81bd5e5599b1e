// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "medassist_session"
	// Thirty days, in seconds.
	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// SessionID returns the caller's session identifier, minting a new uuid
// cookie on first contact. Must be called before the response body is
// written (streaming handlers call it before SetSSEHeaders).
func SessionID(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookieName); err == nil && id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetCookie(sessionCookieName, id, sessionCookieMaxAge, "/", "", false, true)
	return id
}
