package ocr

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"

	"karton/pkg/label"
)

func stageNames(vs []Variant) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Stage)
	}
	return out
}

func TestVariantsOrder(t *testing.T) {
	img := imaging.New(120, 80, color.White)
	jis := stageNames(Variants(img, label.JIS, DefaultMaxWidth))
	wantJIS := []string{"Sharpened", "Grayscale", "Inverted_Gray", "Binary"}
	if !reflect.DeepEqual(jis, wantJIS) {
		t.Fatalf("jis stages = %v, want %v", jis, wantJIS)
	}
	din := stageNames(Variants(img, label.DIN, DefaultMaxWidth))
	wantDIN := []string{"Enhanced", "Binary_Otsu", "Adaptive_Gaussian", "Adaptive_Mean", "Binary_Inv", "Adaptive_Inv", "Morphed"}
	if !reflect.DeepEqual(din, wantDIN) {
		t.Fatalf("din stages = %v, want %v", din, wantDIN)
	}
}

func TestVariantsDownscale(t *testing.T) {
	img := imaging.New(1280, 720, color.Gray{Y: 90})
	for _, std := range label.Standards {
		for _, v := range Variants(img, std, 640) {
			if w := v.Image.Rect.Dx(); w != 640 {
				t.Fatalf("%v %s width = %d, want 640", std, v.Stage, w)
			}
			if h := v.Image.Rect.Dy(); h != 360 {
				t.Fatalf("%v %s height = %d, want 360", std, v.Stage, h)
			}
		}
	}
}

func TestInvertedIsComplement(t *testing.T) {
	img := imaging.New(40, 20, color.Gray{Y: 200})
	vs := Variants(img, label.JIS, DefaultMaxWidth)
	gray, inv := vs[1].Image, vs[2].Image
	for i := range gray.Pix {
		if gray.Pix[i]+inv.Pix[i] != 255 {
			t.Fatalf("pixel %d: %d + %d != 255", i, gray.Pix[i], inv.Pix[i])
		}
	}
}

func TestVariantsGraySubImage(t *testing.T) {
	big := image.NewGray(image.Rect(0, 0, 40, 30))
	for i := range big.Pix {
		big.Pix[i] = uint8(i % 256)
	}
	crops := []*image.Gray{
		big.SubImage(image.Rect(0, 0, 20, 15)).(*image.Gray),
		big.SubImage(image.Rect(5, 7, 25, 22)).(*image.Gray),
	}
	for _, crop := range crops {
		for _, std := range label.Standards {
			for _, v := range Variants(crop, std, DefaultMaxWidth) {
				if v.Image.Rect != image.Rect(0, 0, 20, 15) {
					t.Fatalf("%v %s bounds = %v", std, v.Stage, v.Image.Rect)
				}
				if len(v.Image.Pix) != 20*15 {
					t.Fatalf("%v %s pix len = %d, want %d", std, v.Stage, len(v.Image.Pix), 20*15)
				}
			}
		}
		g := toGray(crop)
		for y := 0; y < 15; y++ {
			for x := 0; x < 20; x++ {
				want := crop.GrayAt(crop.Rect.Min.X+x, crop.Rect.Min.Y+y).Y
				if got := g.GrayAt(x, y).Y; got != want {
					t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
				}
			}
		}
	}
}

func TestOtsuSplitsBimodal(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range g.Pix {
		if i < 50 {
			g.Pix[i] = 20
		} else {
			g.Pix[i] = 230
		}
	}
	thr := otsuThreshold(g)
	if thr < 20 || thr >= 230 {
		t.Fatalf("threshold %d not between modes", thr)
	}
	b := Binarize(g)
	if b.Pix[0] != 0 || b.Pix[99] != 255 {
		t.Fatalf("binarize: got %d/%d, want 0/255", b.Pix[0], b.Pix[99])
	}
}

func TestCollectSkipsFailures(t *testing.T) {
	img := imaging.New(60, 30, color.White)
	vs := Variants(img, label.JIS, DefaultMaxWidth)
	calls := 0
	rec := RecognizerFunc(func(image.Image, Options) ([]string, error) {
		calls++
		switch calls {
		case 1:
			return nil, errors.New("boom")
		case 2:
			panic("engine crashed")
		case 3:
			return []string{" 55D23L ", "", "55D23L"}, nil
		}
		return []string{"５５D23L"}, nil
	})
	pool := Collect(rec, vs, Options{})
	if calls != len(vs) {
		t.Fatalf("calls = %d, want %d", calls, len(vs))
	}
	want := []string{"55D23L", "55D23L", "55D23L"}
	if !reflect.DeepEqual(pool.Raw, want) {
		t.Fatalf("raw = %q, want %q", pool.Raw, want)
	}
	if !reflect.DeepEqual(pool.Failed, []string{"Sharpened", "Grayscale"}) {
		t.Fatalf("failed = %v", pool.Failed)
	}
	if got := pool.Unique(); len(got) != 1 || got[0] != "55D23L" {
		t.Fatalf("unique = %q", got)
	}
	if pool.Stages["Inverted_Gray"] != 2 {
		t.Fatalf("stage count = %d, want 2", pool.Stages["Inverted_Gray"])
	}
}

func TestCollectBlankFrame(t *testing.T) {
	img := imaging.New(60, 30, color.White)
	rec := RecognizerFunc(func(image.Image, Options) ([]string, error) { return nil, nil })
	pool := Collect(rec, Variants(img, label.DIN, DefaultMaxWidth), Options{})
	if !pool.Empty() {
		t.Fatalf("expected empty pool, got %q", pool.Raw)
	}
}

func TestGroupBoxesLine(t *testing.T) {
	words := []Box{
		{Rect: image.Rect(60, 10, 100, 30), Text: "260A"},
		{Rect: image.Rect(0, 12, 50, 30), Text: "LN0"},
		{Rect: image.Rect(300, 10, 340, 30), Text: "ISS"},
		{Rect: image.Rect(0, 100, 4, 104), Text: "x"},
	}
	got := GroupBoxes(words, Options{MinSize: 10, WidthThreshold: 0.7})
	want := []string{"LN0 260A", "ISS"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGroupBoxesParagraph(t *testing.T) {
	words := []Box{
		{Rect: image.Rect(0, 0, 60, 20), Text: "LN4"},
		{Rect: image.Rect(0, 25, 80, 45), Text: "776A"},
		{Rect: image.Rect(0, 300, 80, 320), Text: "far"},
	}
	got := GroupBoxes(words, Options{MinSize: 5, WidthThreshold: 0.5, Paragraph: true})
	want := []string{"LN4 776A", "far"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := GroupBoxes(nil, Options{}); got != nil {
		t.Fatalf("nil input: got %q", got)
	}
}
