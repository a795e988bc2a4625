package batch

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// CanonicalRecord is one row of the canonical orders dataset. Field order
// matches the column order of the written files.
type CanonicalRecord struct {
	OrderID                string  `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustomerID             string  `parquet:"name=customer_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProductName            string  `parquet:"name=product_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category               string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity               int32   `parquet:"name=quantity, type=INT32"`
	Price                  float64 `parquet:"name=price, type=DOUBLE"`
	Subtotal               float64 `parquet:"name=subtotal, type=DOUBLE"`
	DiscountPercentage     float64 `parquet:"name=discount_percentage, type=DOUBLE"`
	DiscountAmount         float64 `parquet:"name=discount_amount, type=DOUBLE"`
	TotalAmount            float64 `parquet:"name=total_amount, type=DOUBLE"`
	OrderDate              string  `parquet:"name=order_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustomerAge            int32   `parquet:"name=customer_age, type=INT32"`
	CustomerLocation       string  `parquet:"name=customer_location, type=BYTE_ARRAY, convertedtype=UTF8"`
	PaymentMethod          string  `parquet:"name=payment_method, type=BYTE_ARRAY, convertedtype=UTF8"`
	ShippingMethod         string  `parquet:"name=shipping_method, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsPrimeMember          bool    `parquet:"name=is_prime_member, type=BOOLEAN"`
	DeviceType             string  `parquet:"name=device_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionDurationSeconds int32   `parquet:"name=session_duration_seconds, type=INT32"`
	ItemsViewed            int32   `parquet:"name=items_viewed, type=INT32"`
	IsReturningCustomer    bool    `parquet:"name=is_returning_customer, type=BOOLEAN"`
	ReferralSource         string  `parquet:"name=referral_source, type=BYTE_ARRAY, convertedtype=UTF8"`
	PromoCodeUsed          *string `parquet:"name=promo_code_used, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	EstimatedDeliveryDays  int32   `parquet:"name=estimated_delivery_days, type=INT32"`

	OrderTimestamp       int64   `parquet:"name=order_timestamp, type=INT64"`
	OrderYear            int32   `parquet:"name=order_year, type=INT32"`
	OrderMonth           int32   `parquet:"name=order_month, type=INT32"`
	OrderDay             int32   `parquet:"name=order_day, type=INT32"`
	OrderHour            int32   `parquet:"name=order_hour, type=INT32"`
	OrderMinute          int32   `parquet:"name=order_minute, type=INT32"`
	OrderWeekday         int32   `parquet:"name=order_weekday, type=INT32"`
	OrderWeek            int32   `parquet:"name=order_week, type=INT32"`
	OrderQuarter         int32   `parquet:"name=order_quarter, type=INT32"`
	IsWeekend            bool    `parquet:"name=is_weekend, type=BOOLEAN"`
	DayPart              string  `parquet:"name=day_part, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustomerSegment      string  `parquet:"name=customer_segment, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderSizeCategory    string  `parquet:"name=order_size_category, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsHighValue          bool    `parquet:"name=is_high_value, type=BOOLEAN"`
	DiscountRate         float64 `parquet:"name=discount_rate, type=DOUBLE"`
	ActualDiscountAmount float64 `parquet:"name=actual_discount_amount, type=DOUBLE"`
	RevenuePerItem       float64 `parquet:"name=revenue_per_item, type=DOUBLE"`
	IsDiscounted         bool    `parquet:"name=is_discounted, type=BOOLEAN"`
	ProcessingTimestamp  string  `parquet:"name=processing_timestamp, type=BYTE_ARRAY, convertedtype=UTF8"`
	EtlBatchID           string  `parquet:"name=etl_batch_id, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements the parquet source.ParquetFile interface over
// an in-memory buffer so files can be handed straight to the object store.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "lzo":
		return parquet.CompressionCodec_LZO
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

// encodeParquet serializes rows into a single in-memory parquet file.
// The schema is taken from the parquet struct tags of T.
func encodeParquet[T any](rows []T, compression string) ([]byte, error) {
	fw := newMemoryFileWriter()
	pw, err := writer.NewParquetWriter(fw, new(T), 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for i, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}
	return fw.Bytes(), nil
}
