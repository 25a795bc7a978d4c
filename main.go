package main

import "github.com/gkotti4/UE5-ReinforcementLearning-AI/cmd"

func main() {
	cmd.Execute()
}
