// Package extract turns fetched article markup into a model.Page: title,
// canonical URL, the source's own section, publication time and the raw
// attribute set of every image node.
//
// Image candidates are kept raw on purpose: choosing the canonical URL among
// lazy-loading attributes is the media package's job.
package extract
