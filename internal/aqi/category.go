package aqi

// Category is the health band an AQI value falls into
type Category string

const (
	CategoryGood                  Category = "Good"
	CategoryModerate              Category = "Moderate"
	CategoryUnhealthyForSensitive Category = "Unhealthy for Sensitive"
	CategoryUnhealthy             Category = "Unhealthy"
	CategoryVeryUnhealthy         Category = "Very Unhealthy"
	CategoryHazardous             Category = "Hazardous"
	CategoryUnknown               Category = "Unknown"
)

// CategoryOf maps an AQI value to its category using closed upper thresholds
func CategoryOf(index float64) Category {
	switch {
	case IsMissing(index):
		return CategoryUnknown
	case index <= 50:
		return CategoryGood
	case index <= 100:
		return CategoryModerate
	case index <= 150:
		return CategoryUnhealthyForSensitive
	case index <= 200:
		return CategoryUnhealthy
	case index <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}

// Color is the hex colour the dashboard uses for the category
func (c Category) Color() string {
	switch c {
	case CategoryGood:
		return "#10B981"
	case CategoryModerate:
		return "#F59E0B"
	case CategoryUnhealthyForSensitive:
		return "#F97316"
	case CategoryUnhealthy:
		return "#EF4444"
	case CategoryVeryUnhealthy:
		return "#8B5CF6"
	case CategoryHazardous:
		return "#7F1D1D"
	default:
		return "#6B7280"
	}
}

// Recommendation is the public health advice for the category
func (c Category) Recommendation() string {
	switch c {
	case CategoryGood:
		return "Perfect for outdoor activities."
	case CategoryModerate:
		return "Unusually sensitive people should consider reducing prolonged outdoor exertion."
	case CategoryUnhealthyForSensitive:
		return "People with respiratory or heart disease, children and older adults should limit prolonged outdoor exertion."
	case CategoryUnhealthy:
		return "Everyone should reduce prolonged or heavy outdoor exertion."
	case CategoryVeryUnhealthy:
		return "Everyone should avoid prolonged outdoor exertion."
	case CategoryHazardous:
		return "Everyone should avoid all outdoor activities."
	default:
		return "Check local health advisories."
	}
}
