package srl

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

//Task is a unit of work executed by a Pool worker.
type Task interface {
	Run()
}

//Pool runs tasks on a fixed number of worker goroutines. Usage: AddTask any number
//of times, then Close and WaitAll.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

//NewPool starts threadsNum workers.
func NewPool(threadsNum int) *Pool {
	pool := &Pool{tasks: make(chan Task)}
	for p := 0; p < threadsNum; p++ {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			for task := range pool.tasks {
				task.Run()
			}
		}()
	}
	return pool
}

//AddTask hands one task to the workers.
func (pool *Pool) AddTask(task Task) {
	pool.tasks <- task
}

//Close signals that no more tasks will be added.
func (pool *Pool) Close() {
	close(pool.tasks)
}

//WaitAll blocks until every added task has finished.
func (pool *Pool) WaitAll() {
	pool.wg.Wait()
}

//TaskRouteRows routes the half interval [Begin, End) of input rows through one tree.
//Tasks own disjoint row ranges of OutProbs, so no locking is needed.
type TaskRouteRows struct {
	Tree               *RoutingTree
	InputData, OutProbs *mat.Dense
	Begin, End          int
	NumFeatures         int
}

//Run processes the owned rows sequentially.
func (task *TaskRouteRows) Run() {
	for i := task.Begin; i < task.End; i++ {
		task.Tree.routeRow(task.InputData, task.OutProbs, i, task.NumFeatures)
	}
}
