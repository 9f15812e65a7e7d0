package commands

import (
	"github.com/patentlens/kernel/internal/patent"
	"github.com/patentlens/kernel/internal/search"
)

// sampleRecords returns a small, realistic patent record set used by the
// run and metrics commands' end-to-end demonstration pipeline. It is not
// representative survey data, only enough volume to exercise trend,
// competition, and technology classification.
func sampleRecords() []patent.Record {
	return []patent.Record{
		{
			ApplicationNumber: "CN202010001.1", Title: "一种基于神经网络的电池管理方法",
			Applicants: []string{"宁德时代"}, ApplicationDate: "2020-03-12",
			IPCClasses: []string{"H01M", "G06N"}, Country: "CN",
			Abstract: "本发明公开了一种基于神经网络的电池管理方法和系统",
		},
		{
			ApplicationNumber: "CN202010512.3", Title: "电动车电池组热管理装置",
			Applicants: []string{"比亚迪"}, ApplicationDate: "2020-07-02",
			IPCClasses: []string{"H01M"}, Country: "CN",
			Abstract: "一种用于电动车电池组的热管理装置和方法",
		},
		{
			ApplicationNumber: "US20210034521", Title: "Machine learning battery state estimation",
			Applicants: []string{"Tesla Inc"}, ApplicationDate: "2021-01-15",
			IPCClasses: []string{"G06N", "H01M"}, Country: "US",
			Abstract: "A machine learning system estimating battery state of charge and health",
		},
		{
			ApplicationNumber: "CN202110876.5", Title: "新能源汽车电池安全监测系统",
			Applicants: []string{"宁德时代"}, ApplicationDate: "2021-06-20",
			IPCClasses: []string{"H01M", "G06F"}, Country: "CN",
			Abstract: "一种新能源汽车电池安全监测系统，采用机器学习方法",
		},
		{
			ApplicationNumber: "CN202210334.8", Title: "固态电池制造工艺",
			Applicants: []string{"比亚迪"}, ApplicationDate: "2022-02-10",
			IPCClasses: []string{"H01M"}, Country: "CN",
			Abstract: "一种固态电池的制造工艺和装置",
		},
		{
			ApplicationNumber: "US20220198877", Title: "Neural network based charging optimization",
			Applicants: []string{"Tesla Inc"}, ApplicationDate: "2022-09-05",
			IPCClasses: []string{"G06N", "H02J"}, Country: "US",
			Abstract: "Neural network controlled fast-charging optimization for electric vehicle batteries",
		},
		{
			ApplicationNumber: "CN202310567.2", Title: "无线通信电池健康预测方法",
			Applicants: []string{"华为技术"}, ApplicationDate: "2023-04-18",
			IPCClasses: []string{"H04W", "G06N"}, Country: "CN",
			Abstract: "一种基于无线通信网络的电池健康预测方法",
		},
		{
			ApplicationNumber: "CN202310998.1", Title: "动力电池梯次利用系统",
			Applicants: []string{"宁德时代"}, ApplicationDate: "2023-08-30",
			IPCClasses: []string{"H01M"}, Country: "CN",
			Abstract: "一种动力电池梯次利用的系统和方法",
		},
	}
}

// sampleSearchRecords seeds the fixture search sources the run command uses
// to demonstrate the search aggregator without a live external search API.
func sampleSearchRecords() map[search.SourceName][]search.Record {
	return map[search.SourceName][]search.Record{
		search.SourceCNKI: {
			{Title: "电池热管理系统综述", URL: "https://cnki.example/1", Content: "综述了电动车电池热管理的关键技术", Source: search.SourceCNKI, PublicationYear: 2023, HasAbstract: true, HasAuthor: true, HasDate: true},
			{Title: "固态电池研究进展", URL: "https://cnki.example/2", Content: "固态电池材料与制造工艺的研究进展", Source: search.SourceCNKI, PublicationYear: 2022, HasAbstract: true, HasAuthor: true, HasDate: true},
		},
		search.SourceBocha: {
			{Title: "Battery health prediction survey", URL: "https://bocha.example/1", Content: "A survey of machine learning approaches to battery health prediction", Source: search.SourceBocha, PublicationYear: 2023, HasAbstract: true, HasAuthor: true, HasDate: true},
		},
		search.SourceWeb: {
			{Title: "EV battery market outlook", URL: "https://web.example/1", Content: "Market analysis of electric vehicle battery suppliers", Source: search.SourceWeb, PublicationYear: 2024, HasAbstract: false, HasAuthor: false, HasDate: true},
		},
	}
}
