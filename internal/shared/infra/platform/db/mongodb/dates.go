package mongodb

import "time"

// DatePrecision es la resolución de una fecha BSON.
const DatePrecision = time.Millisecond

// TruncateDate recorta un instante a lo que una fecha BSON puede guardar.
func TruncateDate(t time.Time) time.Time {
	return t.UTC().Truncate(DatePrecision)
}

// TruncateDatePtr es TruncateDate para fechas opcionales.
func TruncateDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := TruncateDate(*t)
	return &v
}
