// package api implements the HTTP gateway to the yt2mp3 backend.
//
// Every request the client makes flows through [Client], which attaches the
// bearer token, paces request volume, and classifies responses. It is the
// single place that inspects HTTP status codes: a 401 triggers session
// invalidation before the error propagates, so every caller observes a
// consistent logged-out state.
package api
