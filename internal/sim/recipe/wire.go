package recipe

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrWire = errors.New("recipe: malformed wire data")

// maxWireString bounds decoded string lengths so a corrupt length prefix
// cannot trigger a huge allocation.
const maxWireString = 1 << 16

// Encode writes r in the fixed sync order: id, name, optional code,
// power-per-craft, optional attribute text, ingredients, outputs.
func (r *Recipe) Encode(w io.Writer) error {
	e := &encoder{w: w}
	e.i32(r.ID)
	e.str(r.Name)
	e.optStr(r.Code)
	e.i64(r.PowerPerCraft)
	e.optStr(r.Attributes)
	e.i32(int32(len(r.Ingredients)))
	for _, in := range r.Ingredients {
		e.str(in.Pattern)
		e.i32(int32(in.Quantity))
		e.optStr(in.Name)
		e.i32(int32(len(in.AllowedVariants)))
		for _, v := range in.AllowedVariants {
			e.str(v)
		}
	}
	e.i32(int32(len(r.Outputs)))
	for _, o := range r.Outputs {
		e.str(o.Code)
		e.i32(int32(o.Quantity))
		e.flag(o.Variable != nil)
		if o.Variable != nil {
			e.i32(int32(*o.Variable))
		}
		e.flag(o.Fluid)
		if o.Fluid {
			e.i32(int32(o.PortionsPerLitre))
		}
	}
	return e.err
}

// Decode reads one recipe and resolves it against res before returning, since
// codes from the wire are not trusted until resolved. A recipe that fails to
// resolve is returned with Resolved() == false, not as an error.
func Decode(rd io.Reader, res Resolver) (*Recipe, error) {
	d := &decoder{r: rd}
	r := &Recipe{Enabled: true, Family: FamilyStructured}
	r.ID = d.i32()
	r.Name = d.str()
	r.Code = d.optStr()
	r.PowerPerCraft = d.i64()
	r.Attributes = d.optStr()

	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		in := Ingredient{Pattern: d.str(), Quantity: int(d.i32())}
		in.Name = d.optStr()
		nv := d.count()
		for j := 0; j < nv && d.err == nil; j++ {
			in.AllowedVariants = append(in.AllowedVariants, d.str())
		}
		r.Ingredients = append(r.Ingredients, in)
	}
	n = d.count()
	for i := 0; i < n && d.err == nil; i++ {
		o := Output{Code: d.str(), Quantity: int(d.i32())}
		if d.flag() {
			v := int(d.i32())
			o.Variable = &v
		}
		if d.flag() {
			o.Fluid = true
			_ = d.i32() // portions are re-read from the registry
		}
		r.Outputs = append(r.Outputs, o)
	}
	if d.err != nil {
		return nil, d.err
	}
	if res != nil {
		r.Resolve(res)
	}
	return r, nil
}

// EncodeAll writes a full catalog push: count, then machine, family, enabled
// flag and the recipe blob for each recipe.
func EncodeAll(w io.Writer, recipes []*Recipe) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.i32(int32(len(recipes)))
	for _, r := range recipes {
		e.str(r.Machine)
		e.str(string(r.Family))
		e.flag(r.Enabled)
		if e.err != nil {
			break
		}
		e.err = r.Encode(bw)
	}
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

func DecodeAll(rd io.Reader, res Resolver) ([]*Recipe, error) {
	br := bufio.NewReader(rd)
	d := &decoder{r: br}
	n := d.count()
	out := make([]*Recipe, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		machine := d.str()
		family := Family(d.str())
		enabled := d.flag()
		if d.err != nil {
			break
		}
		r, err := Decode(br, nil)
		if err != nil {
			return nil, err
		}
		r.Machine = machine
		r.Family = family
		r.Enabled = enabled
		if res != nil {
			r.Resolve(res)
		}
		out = append(out, r)
	}
	if d.err != nil {
		return nil, d.err
	}
	return out, nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.BigEndian, v)
}

func (e *encoder) i32(v int32) { e.write(v) }
func (e *encoder) i64(v int64) { e.write(v) }

func (e *encoder) flag(b bool) {
	var v uint8
	if b {
		v = 1
	}
	e.write(v)
}

func (e *encoder) str(s string) {
	e.i32(int32(len(s)))
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *encoder) optStr(s string) {
	e.flag(s != "")
	if s != "" {
		e.str(s)
	}
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, binary.BigEndian, v); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrWire, err)
	}
}

func (d *decoder) i32() int32 {
	var v int32
	d.read(&v)
	return v
}

func (d *decoder) i64() int64 {
	var v int64
	d.read(&v)
	return v
}

func (d *decoder) flag() bool {
	var v uint8
	d.read(&v)
	return v != 0
}

func (d *decoder) count() int {
	n := d.i32()
	if d.err == nil && (n < 0 || n > maxWireString) {
		d.err = fmt.Errorf("%w: bad count %d", ErrWire, n)
		return 0
	}
	return int(n)
}

func (d *decoder) str() string {
	n := d.count()
	if d.err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrWire, err)
		return ""
	}
	return string(buf)
}

func (d *decoder) optStr() string {
	if !d.flag() {
		return ""
	}
	return d.str()
}
