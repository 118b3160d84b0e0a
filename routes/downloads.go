/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/flamego/flamego"

	"github.com/muhammadimranrafique/copy-app/api"
)

// attachmentHeaders marks a response as a private file download. Invoices,
// receipts and ledgers carry a leader's balances, so no cache may keep them.
func attachmentHeaders(c flamego.Context, contentType, filename string) {
	headers := c.ResponseWriter().Header()
	headers.Set("Content-Type", contentType)
	headers.Set("Content-Disposition", attachment(filename))
	headers.Set("Cache-Control", "private, no-store, max-age=0")
	headers.Set("X-Content-Type-Options", "nosniff")
}

// writeAttachment sends a file built in memory.
func writeAttachment(c flamego.Context, contentType, filename string, payload []byte) {
	attachmentHeaders(c, contentType, filename)
	c.ResponseWriter().Header().Set("Content-Length", strconv.Itoa(len(payload)))
	c.ResponseWriter().WriteHeader(http.StatusOK)
	if _, err := c.ResponseWriter().Write(payload); err != nil {
		logger.Warn("Download interrupted", "filename", filename, "error", err)
	}
}

// serveDownload streams a backend file to the browser.
func serveDownload(c flamego.Context, dl *api.Download) {
	defer func() {
		if err := dl.Body.Close(); err != nil {
			logger.Warn("Failed to close download body", "error", err)
		}
	}()

	attachmentHeaders(c, dl.ContentType, dl.Filename)
	c.ResponseWriter().WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.ResponseWriter(), dl.Body); err != nil {
		logger.Warn("Download interrupted", "filename", dl.Filename, "error", err)
	}
}

func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
