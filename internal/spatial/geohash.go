package spatial

// Base32 encoding for geohash
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode encodes latitude and longitude into a geohash string.
// precision: number of characters in the geohash (1-12). Bits alternate
// longitude/latitude starting with longitude, most significant bit first.
func Encode(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := []float64{-90.0, 90.0}
	lonRange := []float64{-180.0, 180.0}

	geohash := make([]byte, 0, precision)
	bits := 0
	bit := 0
	ch := 0

	for len(geohash) < precision {
		if bit%2 == 0 {
			// Longitude
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				ch |= 1 << (4 - bits)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			// Latitude
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= 1 << (4 - bits)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		bits++
		if bits == 5 {
			geohash = append(geohash, base32[ch])
			bits = 0
			ch = 0
		}
		bit++
	}

	return string(geohash)
}

// DecodeCenter decodes a geohash string into the center point of its cell.
func DecodeCenter(geohash string) (lat, lon float64) {
	minLat, minLon, maxLat, maxLon := Bounds(geohash)
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2
}

// Bounds returns the bounding box of a geohash cell as
// (minLat, minLon, maxLat, maxLon).
func Bounds(geohash string) (float64, float64, float64, float64) {
	latRange := []float64{-90.0, 90.0}
	lonRange := []float64{-180.0, 180.0}

	isLon := true
	for i := 0; i < len(geohash); i++ {
		idx := indexOfBase32(geohash[i])
		if idx == -1 {
			continue
		}

		for mask := 16; mask > 0; mask >>= 1 {
			if isLon {
				mid := (lonRange[0] + lonRange[1]) / 2
				if idx&mask != 0 {
					lonRange[0] = mid
				} else {
					lonRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if idx&mask != 0 {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			isLon = !isLon
		}
	}

	return latRange[0], lonRange[0], latRange[1], lonRange[1]
}

// indexOfBase32 finds the index of a character in the base32 alphabet
func indexOfBase32(ch byte) int {
	for i := 0; i < len(base32); i++ {
		if base32[i] == ch {
			return i
		}
	}
	return -1
}
