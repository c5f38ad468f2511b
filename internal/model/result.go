package model

// SimilarityResult is one row of an against-all or batch comparison.
// Similarity is a percentage in [0, 100].
type SimilarityResult struct {
	FileID     int64   `json:"fileId"`
	FileName   string  `json:"fileName"`
	Language   string  `json:"language"`
	Similarity float64 `json:"similarity"`
}
