package segment

import (
	"math"

	"github.com/roadsense/iri-engine/internal/models"
)

// Точность geohash для привязки сегмента, ~150 м ячейка
const geohashPrecision = 7

// Segmenter нарезает отклик квартер-кар модели на участки фиксированной
// длины и агрегирует статистику по каждому. Сегменты смежные и не
// перекрываются, последний может быть короче заданной длины.
type Segmenter struct {
	cfg models.FilterConfig
}

// NewSegmenter создает новый сегментатор
func NewSegmenter(cfg models.FilterConfig) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Split разбивает одну под-трассу на сегменты. Дистанции и идентификаторы
// локальны для под-трассы, вызывающая сторона смещает их при слиянии.
// Поездка короче одной длины сегмента дает ровно один сегмент на всю
// дистанцию.
func (s *Segmenter) Split(points []models.ProfilePoint) []models.Segment {
	if len(points) == 0 {
		return nil
	}

	length := s.cfg.SegmentLengthM
	total := points[len(points)-1].DistanceM
	if total <= 0 {
		return nil
	}

	// Группируем точки по номеру корзины дистанции. Пустые корзины
	// поглощаются соседями, чтобы сегменты оставались смежными.
	type group struct {
		bucket     int
		start, end int // полуинтервал [start, end) в points
	}
	var groups []group
	for i := range points {
		bucket := int(points[i].DistanceM / length)
		if points[i].DistanceM >= total {
			bucket = int(math.Ceil(total/length)) - 1
		}
		if len(groups) == 0 || groups[len(groups)-1].bucket != bucket {
			groups = append(groups, group{bucket: bucket, start: i, end: i + 1})
		} else {
			groups[len(groups)-1].end = i + 1
		}
	}

	segments := make([]models.Segment, 0, len(groups))
	prevEnd := 0.0
	for gi, g := range groups {
		end := math.Min(float64(g.bucket+1)*length, total)
		if gi == len(groups)-1 {
			end = total
		}
		if end <= prevEnd {
			continue
		}

		seg := s.aggregate(points[g.start:g.end], len(segments), prevEnd, end)
		segments = append(segments, seg)
		prevEnd = end
	}

	return segments
}

// aggregate собирает статистику сегмента по его точкам
func (s *Segmenter) aggregate(points []models.ProfilePoint, id int, start, end float64) models.Segment {
	sumRate := 0.0
	sumSpeed := 0.0
	sumAccelSq := 0.0
	for i := range points {
		sumRate += points[i].Roughness
		sumSpeed += points[i].SpeedMS
		sumAccelSq += points[i].Accel * points[i].Accel
	}
	n := float64(len(points))

	// IRI — накопленный ход подвески на километр пути: средняя скорость
	// хода, отнесенная к эталонной скорости движения, в м/км
	iri := sumRate / n / s.cfg.ReferenceSpeedMS() * 1000

	seg := models.Segment{
		SegmentID:     id,
		DistanceStart: start,
		DistanceEnd:   end,
		SegmentLength: end - start,
		IRIValue:      iri,
		MeanSpeed:     sumSpeed / n,
		RMSAccel:      math.Sqrt(sumAccelSq / n),
	}
	seg.Condition, seg.Color = models.ClassifyIRI(iri)

	fillCoordinates(&seg, points)

	return seg
}

// fillCoordinates берет координаты из ближайших граничных точек с фиксом
func fillCoordinates(seg *models.Segment, points []models.ProfilePoint) {
	for i := range points {
		if points[i].Lat != nil && points[i].Lon != nil {
			seg.StartLat = points[i].Lat
			seg.StartLon = points[i].Lon
			break
		}
	}
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Lat != nil && points[i].Lon != nil {
			seg.EndLat = points[i].Lat
			seg.EndLon = points[i].Lon
			break
		}
	}
	if seg.StartLat != nil && seg.StartLon != nil {
		point := models.GeoPoint{Latitude: *seg.StartLat, Longitude: *seg.StartLon}
		seg.Geohash = point.Geohash(geohashPrecision)
	}
}
