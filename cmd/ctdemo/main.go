//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Command ctdemo runs one of the engine's end-to-end scenarios against
// an in-process two-party engine and prints the revealed, decoded
// result.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/markkurossi/cryptotensor/engine"
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("usage: ctdemo dot|square|sigmoid|add\n")
	}

	cfg, err := engine.DefaultConfig()
	if err != nil {
		log.Fatal(err)
	}
	e, err := engine.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var result []float64
	switch flag.Args()[0] {
	case "dot":
		result, err = runDot(e)
	case "square":
		result, err = runSquare(e)
	case "sigmoid":
		result, err = runSigmoid(e)
	case "add":
		result, err = runAdd(e)
	default:
		log.Fatalf("invalid operation: %v\n", flag.Args()[0])
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%v\n", result)
}

func share(e *engine.Engine, values []float64, shape []int) (*engine.PrivateTensor, error) {
	residues := engine.EncodeInput(values, shape, e.Config.Params)
	return e.Share(residues)
}

func reveal(e *engine.Engine, x *engine.PrivateTensor) ([]float64, error) {
	residues, err := e.Reveal(x)
	if err != nil {
		return nil, err
	}
	return engine.DecodeOutput(residues, e.Config.Params), nil
}

// runDot computes dot([[1.5,-2.25]], [[2.0],[4.0]]) = [[-6.0]].
func runDot(e *engine.Engine) ([]float64, error) {
	x, err := share(e, []float64{1.5, -2.25}, []int{1, 2})
	if err != nil {
		return nil, err
	}
	y, err := share(e, []float64{2.0, 4.0}, []int{2, 1})
	if err != nil {
		return nil, err
	}
	z, err := e.Dot(x, y)
	if err != nil {
		return nil, err
	}
	return reveal(e, z)
}

// runSquare computes square([0.5,1.0,-1.5]) = [0.25,1.0,2.25].
func runSquare(e *engine.Engine) ([]float64, error) {
	x, err := share(e, []float64{0.5, 1.0, -1.5}, []int{3})
	if err != nil {
		return nil, err
	}
	z, err := e.Square(x)
	if err != nil {
		return nil, err
	}
	return reveal(e, z)
}

// runSigmoid computes sigmoid([0,1,-1]) ~= [0.5, 0.731, 0.269].
func runSigmoid(e *engine.Engine) ([]float64, error) {
	x, err := share(e, []float64{0.0, 1.0, -1.0}, []int{3})
	if err != nil {
		return nil, err
	}
	z, err := e.Sigmoid(x)
	if err != nil {
		return nil, err
	}
	return reveal(e, z)
}

// runAdd computes add([1,2],[3,-1]) = [4,1], exact (no truncation).
func runAdd(e *engine.Engine) ([]float64, error) {
	x, err := share(e, []float64{1.0, 2.0}, []int{2})
	if err != nil {
		return nil, err
	}
	y, err := share(e, []float64{3.0, -1.0}, []int{2})
	if err != nil {
		return nil, err
	}
	z, err := e.Add(x, y)
	if err != nil {
		return nil, err
	}
	return reveal(e, z)
}
