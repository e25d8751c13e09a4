// Package alpr holds the data model shared by the plate-reading pipeline:
// pixel-space boxes, detector output, tracker output, recognizer candidates
// and the run mode switch.
//
// Subpackages:
//
//	frames    - decoded frames and the packed BGR image type
//	cv        - OpenCV conversions and video/device capture
//	enhance   - the fixed plate-crop enhancement transform
//	associate - plate to tracked-vehicle containment association
//	tracking  - SORT-style IoU tracker
//	detect    - DNN object detectors (vehicles and plates)
//	recognize - Tesseract text recognizer
//	remote    - gRPC adapters for an out-of-process model service
//	results   - the per-run frame result store
//	pipeline  - the frame orchestrator
//	export    - CSV output artifact
//	storage   - SQLite persistence of runs and plate reads
//	report    - run summary statistics and charts
//	live      - websocket broadcast of stored reads
//	annotate  - recognizer overlay images for debugging
package alpr
