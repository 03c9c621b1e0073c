package dental

import "fmt"

// Universal Numbering System: 1-16 run across the upper jaw from the patient's
// right third molar, 17-32 back across the lower jaw from the left third molar.
const (
	MinToothID = 1
	MaxToothID = 32
	ToothCount = MaxToothID - MinToothID + 1
)

var toothNames = [ToothCount]string{
	// Upper right
	"Gigi Bungsu Kanan Atas",
	"Geraham Kedua Kanan Atas",
	"Geraham Pertama Kanan Atas",
	"Premolar Kedua Kanan Atas",
	"Premolar Pertama Kanan Atas",
	"Gigi Taring Kanan Atas",
	"Gigi Seri Lateral Kanan Atas",
	"Gigi Seri Tengah Kanan Atas",
	// Upper left
	"Gigi Seri Tengah Kiri Atas",
	"Gigi Seri Lateral Kiri Atas",
	"Gigi Taring Kiri Atas",
	"Premolar Pertama Kiri Atas",
	"Premolar Kedua Kiri Atas",
	"Geraham Pertama Kiri Atas",
	"Geraham Kedua Kiri Atas",
	"Gigi Bungsu Kiri Atas",
	// Lower left
	"Gigi Bungsu Kiri Bawah",
	"Geraham Kedua Kiri Bawah",
	"Geraham Pertama Kiri Bawah",
	"Premolar Kedua Kiri Bawah",
	"Premolar Pertama Kiri Bawah",
	"Gigi Taring Kiri Bawah",
	"Gigi Seri Lateral Kiri Bawah",
	"Gigi Seri Tengah Kiri Bawah",
	// Lower right
	"Gigi Seri Tengah Kanan Bawah",
	"Gigi Seri Lateral Kanan Bawah",
	"Gigi Taring Kanan Bawah",
	"Premolar Pertama Kanan Bawah",
	"Premolar Kedua Kanan Bawah",
	"Geraham Pertama Kanan Bawah",
	"Geraham Kedua Kanan Bawah",
	"Gigi Bungsu Kanan Bawah",
}

// ValidToothID reports whether id is a permanent tooth number.
func ValidToothID(id int) bool {
	return id >= MinToothID && id <= MaxToothID
}

// ToothName returns the fixed label for a tooth id, or "" when out of range.
func ToothName(id int) string {
	if !ValidToothID(id) {
		return ""
	}
	return toothNames[id-MinToothID]
}

// QuadrantOf returns the jaw quadrant for a tooth id.
func QuadrantOf(id int) Quadrant {
	switch {
	case id <= 8:
		return UpperRight
	case id <= 16:
		return UpperLeft
	case id <= 24:
		return LowerLeft
	default:
		return LowerRight
	}
}

// NewTooth builds a tooth with its derived name and quadrant.
func NewTooth(id int, status ToothStatus) (Tooth, error) {
	if !ValidToothID(id) {
		return Tooth{}, Invalid("id", fmt.Sprintf("tooth id %d is outside %d-%d", id, MinToothID, MaxToothID))
	}
	if status == "" {
		status = StatusHealthy
	}
	if !status.Valid() {
		return Tooth{}, Invalid("status", fmt.Sprintf("unknown tooth status %q", status))
	}
	return Tooth{ID: id, Name: ToothName(id), Status: status, Quadrant: QuadrantOf(id)}, nil
}

// FullSet returns all 32 teeth in the given status, ordered by id.
func FullSet(status ToothStatus) []Tooth {
	teeth := make([]Tooth, 0, ToothCount)
	for id := MinToothID; id <= MaxToothID; id++ {
		t, _ := NewTooth(id, status)
		teeth = append(teeth, t)
	}
	return teeth
}

// MissingTeeth returns the UNS ids absent from teeth. A complete chart returns nil.
func MissingTeeth(teeth []Tooth) []int {
	var seen [ToothCount + 1]bool
	for _, t := range teeth {
		if ValidToothID(t.ID) {
			seen[t.ID] = true
		}
	}
	var missing []int
	for id := MinToothID; id <= MaxToothID; id++ {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// AnatomicalLabel names a tooth position by its representative tooth on the
// patient's right side; the left side mirrors it.
type AnatomicalLabel struct {
	RepresentativeToothID int
	Label                 string
}

var (
	UpperAnatomicalLabels = []AnatomicalLabel{
		{8, "Gigi Seri Depan"},
		{7, "Gigi Seri Lateral"},
		{6, "Gigi Taring"},
		{5, "Gigi Premolar Pertama"},
		{4, "Gigi Premolar Kedua"},
		{3, "Gigi Geraham Pertama"},
		{2, "Gigi Geraham Kedua"},
		{1, "Gigi Geraham Bungsu"},
	}
	LowerAnatomicalLabels = []AnatomicalLabel{
		{25, "Gigi Seri Depan"},
		{26, "Gigi Seri Lateral"},
		{27, "Gigi Taring"},
		{28, "Gigi Premolar Pertama"},
		{29, "Gigi Premolar Kedua"},
		{30, "Gigi Geraham Pertama"},
		{31, "Gigi Geraham Kedua"},
		{32, "Gigi Geraham Bungsu"},
	}
)
