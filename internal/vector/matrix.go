package vector

import "fmt"

// Matrix holds cosine similarities of N posts against K keywords.
type Matrix struct {
	keywords   []string
	rows       [][]float64
	degenerate []int
}

// Compute scores every post vector against every keyword in one pass.
// Rows whose similarity is undefined (zero magnitude) are recorded as degenerate and score 0.
func Compute(postVecs [][]float32, index *KeywordIndex) (*Matrix, error) {
	if index == nil {
		return nil, fmt.Errorf("keyword index is nil")
	}
	m := &Matrix{
		keywords: index.Phrases(),
		rows:     make([][]float64, len(postVecs)),
	}
	for i, v := range postVecs {
		scores, ok, err := index.Scores(v)
		if err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}
		if !ok {
			m.degenerate = append(m.degenerate, i)
		}
		m.rows[i] = scores
	}
	return m, nil
}

// Rows returns the number of posts.
func (m *Matrix) Rows() int {
	return len(m.rows)
}

// Row returns the similarities of post i to every keyword.
func (m *Matrix) Row(i int) []float64 {
	return m.rows[i]
}

// RowMax returns the highest similarity of post i and the keyword that produced it.
// A row with no keywords returns (0, "").
func (m *Matrix) RowMax(i int) (float64, string) {
	row := m.rows[i]
	if len(row) == 0 {
		return 0, ""
	}
	best := 0
	for j := 1; j < len(row); j++ {
		if row[j] > row[best] {
			best = j
		}
	}
	return row[best], m.keywords[best]
}

// Degenerate returns the indices of rows with an undefined similarity.
func (m *Matrix) Degenerate() []int {
	return m.degenerate
}
