package alpr

// COCO class ids used by general-purpose vehicle detectors.
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// DefaultVehicleClasses lists the detector classes treated as vehicles.
var DefaultVehicleClasses = []int{ClassCar, ClassMotorcycle, ClassBus, ClassTruck}

var vehicleLabels = map[int]string{
	ClassCar:        "car",
	ClassMotorcycle: "motorcycle",
	ClassBus:        "bus",
	ClassTruck:      "truck",
}

// VehicleLabel returns the label of a vehicle class id, or "" if the id is
// not a known vehicle class.
func VehicleLabel(classID int) string {
	return vehicleLabels[classID]
}
