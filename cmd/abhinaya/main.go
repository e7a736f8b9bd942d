// Command abhinaya drives a FLAME face mesh from MediaPipe face blendshapes.
package main

func main() {
	Execute()
}
