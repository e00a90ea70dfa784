package model

import "errors"

// ErrStructuralParse is the only fatal ingestion error: the payload is not a
// recognizable structure at all (not valid JSON, or its top level is neither
// an object nor an array). No MatchModel is produced. Every other defect
// degrades gracefully into integrity flags.
var ErrStructuralParse = errors.New("payload is not a recognizable structure")
