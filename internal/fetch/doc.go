// Package fetch retrieves source pages.
//
// Fetcher is the plain HTTP path: it sends the configured User-Agent, per
// source headers and cookie, optionally routes through a SOCKS5 proxy, and
// caps the body size. Renderer loads a page in headless Chrome and scrolls it
// so that scroll-triggered lazy images receive their real src before the
// markup is serialized.
package fetch
