package genotype

import "fmt"

// Calls is the raw call tensor for a window: variants × samples × ploidy,
// stored variant-major in a flat slice. Missing alleles are Missing.
type Calls struct {
	Variants int
	Samples  int
	Ploidy   Ploidy
	Data     []int8
}

// NewCalls allocates a call tensor filled with Missing.
func NewCalls(variants, samples int, ploidy Ploidy) *Calls {
	data := make([]int8, variants*samples*int(ploidy))
	for i := range data {
		data[i] = Missing
	}
	return &Calls{Variants: variants, Samples: samples, Ploidy: ploidy, Data: data}
}

func (c *Calls) index(v, s, k int) int {
	return (v*c.Samples+s)*int(c.Ploidy) + k
}

// At returns allele k of the call for variant v and sample s.
func (c *Calls) At(v, s, k int) int8 {
	return c.Data[c.index(v, s, k)]
}

// Set stores allele k of the call for variant v and sample s.
func (c *Calls) Set(v, s, k int, allele int8) {
	c.Data[c.index(v, s, k)] = allele
}

// Call returns the allele indices of one call. The slice aliases Data.
func (c *Calls) Call(v, s int) []int8 {
	i := c.index(v, s, 0)
	return c.Data[i : i+int(c.Ploidy)]
}

// SampleMajor returns one row per sample holding that sample's alleles for
// every variant, flattened as variant × ploidy.
func (c *Calls) SampleMajor() [][]int8 {
	p := int(c.Ploidy)
	rows := make([][]int8, c.Samples)
	for s := range rows {
		row := make([]int8, c.Variants*p)
		for v := 0; v < c.Variants; v++ {
			copy(row[v*p:(v+1)*p], c.Call(v, s))
		}
		rows[s] = row
	}
	return rows
}

// Check verifies that the tensor dimensions match its data.
func (c *Calls) Check() error {
	if !c.Ploidy.Valid() {
		return fmt.Errorf("invalid ploidy %d", c.Ploidy)
	}
	if want := c.Variants * c.Samples * int(c.Ploidy); len(c.Data) != want {
		return fmt.Errorf("call data has %d values, expected %d", len(c.Data), want)
	}
	return nil
}

// CallField is a per-call integer field such as DP or DV, variants ×
// samples, variant-major. Missing values are -1.
type CallField struct {
	Name     string
	Variants int
	Samples  int
	Data     []int32
}

// NewCallField allocates a call field filled with -1.
func NewCallField(name string, variants, samples int) *CallField {
	data := make([]int32, variants*samples)
	for i := range data {
		data[i] = -1
	}
	return &CallField{Name: name, Variants: variants, Samples: samples, Data: data}
}

// At returns the value for variant v and sample s.
func (f *CallField) At(v, s int) int32 {
	return f.Data[v*f.Samples+s]
}

// Set stores the value for variant v and sample s.
func (f *CallField) Set(v, s int, val int32) {
	f.Data[v*f.Samples+s] = val
}

// SampleMajor returns one row of values per sample.
func (f *CallField) SampleMajor() [][]int32 {
	rows := make([][]int32, f.Samples)
	for s := range rows {
		row := make([]int32, f.Variants)
		for v := range row {
			row[v] = f.At(v, s)
		}
		rows[s] = row
	}
	return rows
}
