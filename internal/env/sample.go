package env

// Sample represents a single ambient measurement next to the apparatus.
type Sample struct {
	Source string `json:"source"` // "device" or "host"

	Temperature float64 `json:"temp_c"`      // °C
	Humidity    float64 `json:"hum_rh"`      // % RH
	Pressure    float64 `json:"pressure_pa"` // Pa
}
