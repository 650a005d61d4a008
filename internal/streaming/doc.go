/*
Package streaming sends finished artifacts back to HTTP clients without
letting a slow or vanished client hold a handler, and the temp files it
owns, indefinitely.

Each chunk write carries a deadline set through http.ResponseController.
Writers that do not support deadlines, such as httptest.ResponseRecorder,
fall back to plain writes. A canceled request context stops the copy
between chunks.

	f, err := ws.Open(result.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = streaming.SendAttachment(r.Context(), w, f, streaming.Attachment{
		Filename:    "photo_compressed.webp",
		ContentType: "image/webp",
		Size:        result.SizeBytes,
	}, streaming.DefaultConfig())
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("download failed: %v", err)
	}

Headers written by SendAttachment:

	Content-Type           the artifact's MIME type
	Content-Disposition    attachment; filename="<name>"
	Content-Length         when the size is known
	X-Content-Type-Options nosniff
*/
package streaming
