package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mikey/phishsense/internal/core"
)

// SparseVector maps feature column to value
type SparseVector map[int]float64

// Vectorizer turns a feature record into a model input vector
type Vectorizer interface {
	Representation() core.Representation
	Dimension() int
	Transform(features core.Features) (SparseVector, error)
}

// Classifier turns a vector into the probability of the malicious class
type Classifier interface {
	Dimension() int
	PredictProba(x SparseVector) float64
}

// vectorizerFile is the on-disk header shared by all vectorizer kinds
type vectorizerFile struct {
	Kind string `json:"kind"`

	// features
	SchemaVersion int      `json:"schema_version,omitempty"`
	FeatureNames  []string `json:"feature_names,omitempty"`

	// tfidf
	Vocabulary  map[string]int `json:"vocabulary,omitempty"`
	IDF         []float64      `json:"idf,omitempty"`
	NgramRange  [2]int         `json:"ngram_range,omitempty"`
	SublinearTF bool           `json:"sublinear_tf,omitempty"`
	Lowercase   *bool          `json:"lowercase,omitempty"`
}

type classifierFile struct {
	Kind      string    `json:"kind"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// LoadVectorizer reads a vectorizer artifact
func LoadVectorizer(path string) (Vectorizer, error) {
	var vf vectorizerFile
	if err := readJSON(path, &vf); err != nil {
		return nil, err
	}
	return buildVectorizer(vf)
}

// LoadClassifier reads a classifier artifact
func LoadClassifier(path string) (Classifier, error) {
	var cf classifierFile
	if err := readJSON(path, &cf); err != nil {
		return nil, err
	}
	return buildClassifier(cf)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return nil
}

func buildVectorizer(vf vectorizerFile) (Vectorizer, error) {
	switch vf.Kind {
	case "features":
		return NewFeatureVectorizer(vf.SchemaVersion, vf.FeatureNames)
	case "tfidf":
		lowercase := true
		if vf.Lowercase != nil {
			lowercase = *vf.Lowercase
		}
		return NewTfidfVectorizer(vf.Vocabulary, vf.IDF, vf.NgramRange[0], vf.NgramRange[1], vf.SublinearTF, lowercase)
	default:
		return nil, fmt.Errorf("unsupported vectorizer kind %q", vf.Kind)
	}
}

func buildClassifier(cf classifierFile) (Classifier, error) {
	switch cf.Kind {
	case "logistic_regression":
		return NewLogisticRegression(cf.Coef, cf.Intercept)
	default:
		return nil, fmt.Errorf("unsupported classifier kind %q", cf.Kind)
	}
}

// FeatureVectorizer maps named numeric features to columns
type FeatureVectorizer struct {
	names []string
}

// NewFeatureVectorizer creates a vectorizer over the given feature names.
// Every name must belong to the URL feature schema.
func NewFeatureVectorizer(schemaVersion int, names []string) (*FeatureVectorizer, error) {
	if schemaVersion != 0 && schemaVersion != core.URLFeatureSchemaVersion {
		return nil, fmt.Errorf("feature schema version %d, want %d", schemaVersion, core.URLFeatureSchemaVersion)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("feature vectorizer has no feature names")
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !core.IsURLFeatureKey(n) {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownFeature, n)
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate feature name %q", n)
		}
		seen[n] = true
	}
	return &FeatureVectorizer{names: names}, nil
}

// Representation implements Vectorizer
func (v *FeatureVectorizer) Representation() core.Representation {
	return core.RepresentationVector
}

// Dimension implements Vectorizer
func (v *FeatureVectorizer) Dimension() int {
	return len(v.names)
}

// Transform implements Vectorizer; input keys the vectorizer does not name are ignored
func (v *FeatureVectorizer) Transform(features core.Features) (SparseVector, error) {
	vf, ok := features.(core.VectorFeatures)
	if !ok {
		return nil, core.ErrRepresentationMismatch
	}
	values := vf.Vector()
	x := make(SparseVector, len(v.names))
	for i, n := range v.names {
		if val := values[n]; val != 0 {
			x[i] = val
		}
	}
	return x, nil
}

// tokenPattern selects runs of two or more letters or digits
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TfidfVectorizer is an l2-normalized TF-IDF bag of n-grams
type TfidfVectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	minN, maxN  int
	sublinearTF bool
	lowercase   bool
}

// NewTfidfVectorizer creates a TF-IDF vectorizer from a fitted vocabulary
func NewTfidfVectorizer(vocabulary map[string]int, idf []float64, minN, maxN int, sublinearTF, lowercase bool) (*TfidfVectorizer, error) {
	if minN <= 0 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	if len(vocabulary) == 0 {
		return nil, fmt.Errorf("tfidf vectorizer has an empty vocabulary")
	}
	if len(idf) != len(vocabulary) {
		return nil, fmt.Errorf("tfidf idf length %d does not match vocabulary size %d", len(idf), len(vocabulary))
	}
	for term, idx := range vocabulary {
		if idx < 0 || idx >= len(idf) {
			return nil, fmt.Errorf("tfidf term %q has out of range index %d", term, idx)
		}
	}
	return &TfidfVectorizer{
		vocabulary:  vocabulary,
		idf:         idf,
		minN:        minN,
		maxN:        maxN,
		sublinearTF: sublinearTF,
		lowercase:   lowercase,
	}, nil
}

// Representation implements Vectorizer
func (v *TfidfVectorizer) Representation() core.Representation {
	return core.RepresentationText
}

// Dimension implements Vectorizer
func (v *TfidfVectorizer) Dimension() int {
	return len(v.idf)
}

// Transform implements Vectorizer
func (v *TfidfVectorizer) Transform(features core.Features) (SparseVector, error) {
	tf, ok := features.(core.TextFeatures)
	if !ok {
		return nil, core.ErrRepresentationMismatch
	}
	text := tf.Text()
	if v.lowercase {
		text = strings.ToLower(text)
	}
	tokens := tokenPattern.FindAllString(text, -1)

	counts := make(map[int]float64)
	for n := v.minN; n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := v.vocabulary[term]; ok {
				counts[idx]++
			}
		}
	}

	x := make(SparseVector, len(counts))
	var norm float64
	for _, idx := range sortedColumns(counts) {
		c := counts[idx]
		if v.sublinearTF {
			c = 1 + math.Log(c)
		}
		w := c * v.idf[idx]
		x[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range x {
			x[idx] /= norm
		}
	}
	return x, nil
}

// LogisticRegression is a binary linear classifier
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

// NewLogisticRegression creates a classifier from fitted weights
func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("logistic regression has no coefficients")
	}
	for _, c := range append([]float64{intercept}, coef...) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("logistic regression has non-finite weights")
		}
	}
	return &LogisticRegression{coef: coef, intercept: intercept}, nil
}

// Dimension implements Classifier
func (m *LogisticRegression) Dimension() int {
	return len(m.coef)
}

// PredictProba implements Classifier
func (m *LogisticRegression) PredictProba(x SparseVector) float64 {
	z := m.intercept
	for _, idx := range sortedColumns(x) {
		if idx >= 0 && idx < len(m.coef) {
			z += m.coef[idx] * x[idx]
		}
	}
	return 1 / (1 + math.Exp(-z))
}

// sortedColumns fixes summation order so scores are reproducible bit for bit
func sortedColumns(x map[int]float64) []int {
	cols := make([]int, 0, len(x))
	for idx := range x {
		cols = append(cols, idx)
	}
	sort.Ints(cols)
	return cols
}
