package ports

import "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"

type Collector interface {
	Start(out chan<- *domain.SensorReading) error
	Stop() error
}
