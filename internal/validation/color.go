package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ColorPattern определяет допустимый формат цвета: #rrggbb (lowercase или uppercase hex)
var ColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateColor проверяет, что цвет задан в формате #rrggbb
func ValidateColor(color string) error {
	if color == "" {
		return fmt.Errorf("color cannot be empty")
	}

	if !ColorPattern.MatchString(color) {
		return fmt.Errorf("color must be in #rrggbb format")
	}

	return nil
}

// ParseColor разбирает #rrggbb в компоненты RGB
func ParseColor(color string) (r, g, b uint8, err error) {
	if err := ValidateColor(color); err != nil {
		return 0, 0, 0, err
	}

	rv, _ := strconv.ParseUint(color[1:3], 16, 8)
	gv, _ := strconv.ParseUint(color[3:5], 16, 8)
	bv, _ := strconv.ParseUint(color[5:7], 16, 8)

	return uint8(rv), uint8(gv), uint8(bv), nil
}

// ColorDistance возвращает евклидово расстояние между двумя цветами
// в RGB-пространстве. Диапазон: 0 (идентичные) .. ~441.67 (черный и белый).
// Используется magic-wand выделением для отбора по близости цвета.
func ColorDistance(a, b string) (float64, error) {
	ar, ag, ab, err := ParseColor(a)
	if err != nil {
		return 0, fmt.Errorf("invalid first color: %w", err)
	}

	br, bg, bb, err := ParseColor(b)
	if err != nil {
		return 0, fmt.Errorf("invalid second color: %w", err)
	}

	dr := float64(ar) - float64(br)
	dg := float64(ag) - float64(bg)
	db := float64(ab) - float64(bb)

	return math.Sqrt(dr*dr + dg*dg + db*db), nil
}
