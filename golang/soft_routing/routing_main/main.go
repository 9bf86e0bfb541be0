package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	srl "github.com/tarstars/soft_tree_routing/golang/soft_routing/srl"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	srl.HandleError(err)
	defer func() { srl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	srl.HandleError(decoder.Decode(out))
}

type RouteConfig struct {
	InputFileName         string `json:"filename_input"`
	ParametersFileName    string `json:"filename_parameters"`
	BiasesFileName        string `json:"filename_biases"`
	ProbabilitiesFileName string `json:"filename_probabilities"`
	LayerNum              int    `json:"layer_num"`
	MaxNodes              int    `json:"max_nodes"`
	NumFeaturesPerNode    int    `json:"num_features_per_node"`
	RandomSeed            int    `json:"random_seed"`
	ThreadsNum            int    `json:"threads_num"`
}

func route(srcConfig string) {
	var routeConfig RouteConfig
	decodeConfig(srcConfig, &routeConfig)

	log.Print("load input batch <", routeConfig.InputFileName, ">")
	inputData := srl.ReadNpy(routeConfig.InputFileName)
	log.Print("load tree parameters <", routeConfig.ParametersFileName, ">")
	parameters := srl.ReadNpy(routeConfig.ParametersFileName)
	log.Print("load tree biases <", routeConfig.BiasesFileName, ">")
	biases := srl.ColumnVector(srl.ReadNpy(routeConfig.BiasesFileName))

	tree, err := srl.NewRoutingTree(srl.RoutingConfig{
		LayerNum:           routeConfig.LayerNum,
		MaxNodes:           routeConfig.MaxNodes,
		NumFeaturesPerNode: routeConfig.NumFeaturesPerNode,
		RandomSeed:         routeConfig.RandomSeed,
	}, parameters, biases)
	srl.HandleError(err)

	probs, err := tree.RouteProbabilities(inputData, routeConfig.ThreadsNum)
	srl.HandleError(err)

	srl.WriteNpy(routeConfig.ProbabilitiesFileName, probs)
	log.Print("routed ", srl.Height(inputData), " rows through ", routeConfig.MaxNodes, " nodes")
}

type LeavesConfig struct {
	InputFileName  string `json:"filename_input"`
	ModelFileName  string `json:"filename_model"`
	LeavesFileName string `json:"filename_leaf_probabilities"`
	ThreadsNum     int    `json:"threads_num"`
}

func leaves(srcConfig string) {
	var leavesConfig LeavesConfig
	decodeConfig(srcConfig, &leavesConfig)

	inputData := srl.ReadNpy(leavesConfig.InputFileName)
	cascade := srl.LoadCascade(leavesConfig.ModelFileName)

	leafProbs, err := cascade.LeafProbabilities(inputData, leavesConfig.ThreadsNum)
	srl.HandleError(err)

	srl.WriteNpy(leavesConfig.LeavesFileName, leafProbs)
}

type GraphConfig struct {
	ModelFileName     string `json:"filename_model"`
	InputFileName     string `json:"filename_input"`
	FigureType        string `json:"figure_type"`
	PicturesDirectory string `json:"pictures_directory"`
	DumpPrefix        string `json:"dump_prefix"`
	ThreadsNum        int    `json:"threads_num"`
}

func graph(srcConfig string) {
	var graphConfig GraphConfig
	decodeConfig(srcConfig, &graphConfig)

	cascade := srl.LoadCascade(graphConfig.ModelFileName)

	var meanProbs [][]float64
	if graphConfig.InputFileName != "" {
		inputData := srl.ReadNpy(graphConfig.InputFileName)
		allProbs, err := cascade.Route(inputData, graphConfig.ThreadsNum)
		srl.HandleError(err)
		for _, probs := range allProbs {
			meanProbs = append(meanProbs, srl.MeanNodeProbabilities(probs))
		}
	}

	cascade.RenderTrees(graphConfig.DumpPrefix, graphConfig.FigureType, graphConfig.PicturesDirectory, meanProbs)
}

func main() {
	runMode := flag.String("mode", "route", "you can select either 'route', 'leaves' or 'graph' modes")
	config := flag.String("config", "routing_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	map[string]func(string){
		"route":  route,
		"leaves": leaves,
		"graph":  graph,
	}[*runMode](*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		srl.HandleError(err)
		defer func() { srl.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
