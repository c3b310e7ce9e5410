package prediction

import "github.com/HatiCode/motoblu/pkg/features"

var sampleExamples = []features.TrainingExample{
	{Color: "Vermelha", DaysInUse: 15, TargetPrice: 28000},
	{Color: "Preta", DaysInUse: 50, TargetPrice: 27500},
	{Color: "Azul", DaysInUse: 180, TargetPrice: 24000},
	{Color: "Amarela", DaysInUse: 365, TargetPrice: 19000},
	{Color: "Verde", DaysInUse: 500, TargetPrice: 17500},
	{Color: "Vermelha", DaysInUse: 730, TargetPrice: 14000},
	{Color: "Preta", DaysInUse: 850, TargetPrice: 13500},
	{Color: "Azul", DaysInUse: 1000, TargetPrice: 12500},
	{Color: "Cinza", DaysInUse: 250, TargetPrice: 21000},
	{Color: "Branca", DaysInUse: 600, TargetPrice: 16500},
}

// SampleExamples returns a fresh copy of the built-in MotoBlu training set.
func SampleExamples() []features.TrainingExample {
	out := make([]features.TrainingExample, len(sampleExamples))
	copy(out, sampleExamples)
	return out
}
