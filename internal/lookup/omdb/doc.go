// Package omdb implements the alternate metadata lookup client against the
// OMDb API. OMDb reports most failures inside a 200 response body, so the
// client inspects the Response and Error fields as well as the status.
package omdb
